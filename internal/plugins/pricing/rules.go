package pricing

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Venue opening hours for rate purposes: day is [dayStart, eveningStart),
// evening is [eveningStart, closing).
const (
	dayStart     = 7
	eveningStart = 17
	closing      = 23
)

// DefaultInterval derives the interval that applies at now. The second
// result is false on a weekday outside opening hours, where no interval
// applies and the court's base rate is used instead.
func DefaultInterval(now time.Time) (TimeInterval, bool) {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return IntervalWeekend, true
	}
	h := now.Hour()
	switch {
	case h >= dayStart && h < eveningStart:
		return IntervalDay, true
	case h >= eveningStart && h < closing:
		return IntervalEvening, true
	}
	return IntervalNone, false
}

// BookingInterval is the interval a new squash session is stamped with.
// Unlike DefaultInterval it always picks one: weekday hours outside the day
// band count as evening.
func BookingInterval(now time.Time) TimeInterval {
	if iv, ok := DefaultInterval(now); ok {
		return iv
	}
	return IntervalEvening
}

// ResolveRate returns the hourly court rate for in. now is only consulted
// when a squash session has no interval selected.
func (c *Catalog) ResolveRate(in Inputs, now time.Time) decimal.Decimal {
	if in.CourtType == CourtTableTennis {
		return in.HourlyRate
	}
	if in.HasSubscription {
		return decimal.Zero
	}
	if in.IsStudent && in.Interval == IntervalDay {
		return c.StudentPrice
	}

	interval := in.Interval
	if interval == IntervalNone {
		derived, ok := DefaultInterval(now)
		if !ok {
			return in.HourlyRate
		}
		interval = derived
	}

	opt, ok := c.Interval(interval)
	if !ok {
		slog.Warn("unknown rate interval, using base rate",
			slog.String("interval", string(interval)),
		)
		return in.HourlyRate
	}
	return opt.Price
}

// ItemsCost sums catalog price times quantity. Unknown item IDs contribute
// nothing and are logged.
func (c *Catalog) ItemsCost(items []ItemSelection) decimal.Decimal {
	total := decimal.Zero
	for _, sel := range items {
		it, ok := c.Item(sel.ItemID)
		if !ok {
			slog.Warn("unknown catalog item, pricing at zero",
				slog.String("item_id", sel.ItemID),
			)
			continue
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(sel.Quantity))))
	}
	return total
}

// Quote computes the full cost breakdown. The court fee is billed on booked
// hours, never on elapsed time, so the result is stable while a session runs.
func (c *Catalog) Quote(in Inputs, now time.Time) Quote {
	rate := c.ResolveRate(in, now)

	courtCost := decimal.Zero
	if in.CourtType == CourtTableTennis || !in.HasSubscription {
		courtCost = rate.Mul(decimal.NewFromInt(int64(in.ScheduledDuration)))
	}

	itemsCost := c.ItemsCost(in.Items)
	discount := c.DiscountCardAmount.Mul(decimal.NewFromInt(int64(in.DiscountCards)))

	total := courtCost.Add(itemsCost).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Rate:      rate,
		CourtCost: courtCost,
		ItemsCost: itemsCost,
		Discount:  discount,
		Total:     total,
	}
}

// ComputeCost returns Quote(in, now).Total.
func (c *Catalog) ComputeCost(in Inputs, now time.Time) decimal.Decimal {
	return c.Quote(in, now).Total
}

// Category classifies which rule priced the court fee.
func Category(in Inputs) RateCategory {
	switch {
	case in.CourtType == CourtTableTennis:
		return RateFixed
	case in.HasSubscription:
		return RateSubscription
	case in.IsStudent:
		return RateStudent
	case in.Interval == IntervalEvening:
		return RateEvening
	case in.Interval == IntervalWeekend:
		return RateWeekend
	default:
		return RateDay
	}
}
