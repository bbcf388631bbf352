package pricing

import "github.com/shopspring/decimal"

// CurrencySymbol is appended to amounts in exports.
const CurrencySymbol = "lei"

// Catalog holds the venue's static price lists. It is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	items     []AdditionalItem
	itemIndex map[string]AdditionalItem
	intervals []TimeIntervalOption

	// StudentPrice is the squash day rate for students.
	StudentPrice decimal.Decimal

	// DiscountCardAmount is subtracted once per discount card.
	DiscountCardAmount decimal.Decimal

	// TableTennisRate is the fixed hourly table rate.
	TableTennisRate decimal.Decimal

	// SquashBaseRate is the fallback squash rate when no interval applies.
	SquashBaseRate decimal.Decimal
}

// NewCatalog builds a catalog from explicit price lists.
func NewCatalog(items []AdditionalItem, intervals []TimeIntervalOption) *Catalog {
	c := &Catalog{
		items:     append([]AdditionalItem(nil), items...),
		itemIndex: make(map[string]AdditionalItem, len(items)),
		intervals: append([]TimeIntervalOption(nil), intervals...),
	}
	for _, it := range items {
		c.itemIndex[it.ID] = it
	}
	return c
}

// DefaultCatalog returns the venue's standard price lists.
func DefaultCatalog() *Catalog {
	c := NewCatalog(
		[]AdditionalItem{
			{ID: "racket", Name: "Racket", Price: decimal.NewFromInt(5), Category: CategoryEquipment},
			{ID: "ball-rental", Name: "Ball Rental", Price: decimal.NewFromInt(2), Category: CategoryEquipment},
			{ID: "ball-purchase", Name: "Ball Purchase", Price: decimal.NewFromInt(20), Category: CategoryEquipment},
			{ID: "water", Name: "Water", Price: decimal.NewFromInt(6), Category: CategoryRefreshment},
			{ID: "arc", Name: "Arc", Price: decimal.NewFromInt(10), Category: CategoryRefreshment},
			{ID: "magneziu", Name: "Magneziu", Price: decimal.NewFromInt(10), Category: CategoryRefreshment},
		},
		[]TimeIntervalOption{
			{Value: IntervalDay, Label: "Day (07-17)", Price: decimal.NewFromInt(50)},
			{Value: IntervalEvening, Label: "Evening (17-23)", Price: decimal.NewFromInt(80)},
			{Value: IntervalWeekend, Label: "Weekend", Price: decimal.NewFromInt(80)},
		},
	)
	c.StudentPrice = decimal.NewFromInt(30)
	c.DiscountCardAmount = decimal.NewFromInt(10)
	c.TableTennisRate = decimal.NewFromInt(30)
	c.SquashBaseRate = decimal.Zero
	return c
}

// Items returns the item catalog in display order.
func (c *Catalog) Items() []AdditionalItem {
	return append([]AdditionalItem(nil), c.items...)
}

// Intervals returns the interval options in display order.
func (c *Catalog) Intervals() []TimeIntervalOption {
	return append([]TimeIntervalOption(nil), c.intervals...)
}

// Item looks up a catalog item by ID.
func (c *Catalog) Item(id string) (AdditionalItem, bool) {
	it, ok := c.itemIndex[id]
	return it, ok
}

// Interval looks up the option for an interval value.
func (c *Catalog) Interval(v TimeInterval) (TimeIntervalOption, bool) {
	for _, opt := range c.intervals {
		if opt.Value == v {
			return opt, true
		}
	}
	return TimeIntervalOption{}, false
}

// BaseRate is the hourly rate snapshot a new session on a court of type t gets.
func (c *Catalog) BaseRate(t CourtType) decimal.Decimal {
	if t == CourtTableTennis {
		return c.TableTennisRate
	}
	return c.SquashBaseRate
}
