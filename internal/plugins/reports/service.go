package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
	"github.com/keyxmakerx/courtside/internal/plugins/sessions"
)

// FinishedSource provides the finished sessions of every court.
type FinishedSource interface {
	AllFinished(ctx context.Context) (map[string][]sessions.Session, error)
}

// ReportService defines the reporting contract.
type ReportService interface {
	// Daily builds the report for the calendar day containing day, in the
	// venue's time zone.
	Daily(ctx context.Context, day time.Time) (*DailyReport, error)
}

type reportService struct {
	src     FinishedSource
	catalog *pricing.Catalog
	loc     *time.Location
}

// NewReportService creates a new report service.
func NewReportService(src FinishedSource, catalog *pricing.Catalog, loc *time.Location) ReportService {
	return &reportService{src: src, catalog: catalog, loc: loc}
}

// Daily loads all finished sessions and aggregates the requested day.
func (s *reportService) Daily(ctx context.Context, day time.Time) (*DailyReport, error) {
	byCourt, err := s.src.AllFinished(ctx)
	if err != nil {
		return nil, err
	}
	var all []sessions.Session
	for _, list := range byCourt {
		all = append(all, list...)
	}
	return Aggregate(all, day.In(s.loc), s.catalog), nil
}

// Aggregate builds the report for day's calendar date in day's location.
// Only finished sessions paid by cash or card that ended on that date count.
// Sessions are folded in end-time order, so breakdown ties keep
// chronological order.
func Aggregate(list []sessions.Session, day time.Time, cat *pricing.Catalog) *DailyReport {
	loc := day.Location()
	y, m, d := day.Date()

	var included []sessions.Session
	for _, s := range list {
		if s.Status != sessions.StatusFinished || s.PaymentStatus != sessions.PaymentPaid || s.EndTime == nil {
			continue
		}
		if s.PaymentMethod != sessions.MethodCash && s.PaymentMethod != sessions.MethodCard {
			continue
		}
		ey, em, ed := s.EndTime.In(loc).Date()
		if ey != y || em != m || ed != d {
			continue
		}
		included = append(included, s)
	}
	sort.SliceStable(included, func(i, j int) bool {
		return included[i].EndTime.Before(*included[j].EndTime)
	})

	cash := newAccumulator(string(sessions.MethodCash))
	card := newAccumulator(string(sessions.MethodCard))
	for i := range included {
		s := &included[i]
		if s.PaymentMethod == sessions.MethodCash {
			cash.add(s, cat)
		} else {
			card.add(s, cat)
		}
	}

	r := &DailyReport{
		Date: day.Format(time.DateOnly),
		Cash: cash.summary(),
		Card: card.summary(),
	}
	r.TotalSessions = r.Cash.Sessions + r.Card.Sessions
	r.TotalRevenue = r.Cash.Revenue.Add(r.Card.Revenue)
	return r
}

// accumulator collects one payment method's totals, remembering the order
// in which keys first appeared.
type accumulator struct {
	method   string
	sessions int
	revenue  decimal.Decimal

	rates     map[RateKey]*RateLine
	rateOrder []RateKey

	items     map[string]*ItemLine
	itemOrder []string
	itemCat   map[string]pricing.ItemCategory
}

func newAccumulator(method string) *accumulator {
	return &accumulator{
		method:  method,
		revenue: decimal.Zero,
		rates:   make(map[RateKey]*RateLine),
		items:   make(map[string]*ItemLine),
		itemCat: make(map[string]pricing.ItemCategory),
	}
}

func (a *accumulator) add(s *sessions.Session, cat *pricing.Catalog) {
	a.sessions++
	a.revenue = a.revenue.Add(s.Cost)

	key := RateKey{
		CourtType:     s.Type,
		Category:      pricing.Category(s.PricingInputs()),
		DiscountCards: s.DiscountCards,
	}
	line, ok := a.rates[key]
	if !ok {
		line = &RateLine{RateKey: key, Label: key.Label(), Revenue: decimal.Zero}
		a.rates[key] = line
		a.rateOrder = append(a.rateOrder, key)
	}
	line.Count++
	line.Revenue = line.Revenue.Add(s.Cost.Sub(cat.ItemsCost(s.Items)))

	for _, sel := range s.Items {
		item, ok := cat.Item(sel.ItemID)
		if !ok || sel.Quantity <= 0 {
			continue
		}
		il, ok := a.items[item.ID]
		if !ok {
			il = &ItemLine{ItemID: item.ID, Name: item.Name, Revenue: decimal.Zero}
			a.items[item.ID] = il
			a.itemOrder = append(a.itemOrder, item.ID)
			a.itemCat[item.ID] = item.Category
		}
		il.Count += sel.Quantity
		il.Revenue = il.Revenue.Add(item.Price.Mul(decimal.NewFromInt(int64(sel.Quantity))))
	}
}

func (a *accumulator) summary() MethodSummary {
	ms := MethodSummary{
		Method:       a.method,
		Sessions:     a.sessions,
		Revenue:      a.revenue,
		Rates:        make([]RateLine, 0, len(a.rateOrder)),
		Equipment:    []ItemLine{},
		Refreshments: []ItemLine{},
	}
	for _, k := range a.rateOrder {
		ms.Rates = append(ms.Rates, *a.rates[k])
	}
	sortRates(ms.Rates)

	for _, id := range a.itemOrder {
		if a.itemCat[id] == pricing.CategoryRefreshment {
			ms.Refreshments = append(ms.Refreshments, *a.items[id])
		} else {
			ms.Equipment = append(ms.Equipment, *a.items[id])
		}
	}
	sortItems(ms.Equipment)
	sortItems(ms.Refreshments)
	return ms
}

// sortRates orders by revenue per session, highest first, keeping
// insertion order on ties.
func sortRates(lines []RateLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].perSession().GreaterThan(lines[j].perSession())
	})
}

// sortItems orders by revenue, highest first, keeping insertion order on ties.
func sortItems(lines []ItemLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Revenue.GreaterThan(lines[j].Revenue)
	})
}
