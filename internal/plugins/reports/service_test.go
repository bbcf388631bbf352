package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
	"github.com/keyxmakerx/courtside/internal/plugins/sessions"
)

var reportDay = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

// --- Mocks ---

type mockSource struct {
	allFinishedFn func(ctx context.Context) (map[string][]sessions.Session, error)
}

func (m *mockSource) AllFinished(ctx context.Context) (map[string][]sessions.Session, error) {
	if m.allFinishedFn != nil {
		return m.allFinishedFn(ctx)
	}
	return nil, nil
}

// --- Fixtures ---

func finished(id string, courtType pricing.CourtType, interval pricing.TimeInterval, cost int64, method sessions.PaymentMethod, end time.Time) sessions.Session {
	return sessions.Session{
		ID:                   id,
		Type:                 courtType,
		ScheduledDuration:    1,
		SelectedTimeInterval: interval,
		Items:                []pricing.ItemSelection{},
		Cost:                 decimal.NewFromInt(cost),
		Status:               sessions.StatusFinished,
		PaymentStatus:        sessions.PaymentPaid,
		PaymentMethod:        method,
		EndTime:              &end,
	}
}

func at(hour, minute int) time.Time {
	return reportDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// daySessions is one day of mixed business plus sessions that must be ignored.
func daySessions() []sessions.Session {
	evening := finished("evening", pricing.CourtSquash, pricing.IntervalEvening, 65, sessions.MethodCash, at(19, 0))
	evening.DiscountCards = 2
	evening.Items = []pricing.ItemSelection{{ItemID: "racket", Quantity: 1}}

	student := finished("student", pricing.CourtSquash, pricing.IntervalDay, 60, sessions.MethodCard, at(12, 0))
	student.IsStudent = true
	student.ScheduledDuration = 2

	table := finished("table", pricing.CourtTableTennis, pricing.IntervalNone, 42, sessions.MethodCash, at(20, 0))
	table.Items = []pricing.ItemSelection{{ItemID: "water", Quantity: 2}}

	day := finished("day", pricing.CourtSquash, pricing.IntervalDay, 50, sessions.MethodCash, at(9, 0))

	canceled := finished("canceled", pricing.CourtSquash, pricing.IntervalDay, 50, sessions.MethodNone, at(10, 0))
	canceled.PaymentStatus = sessions.PaymentCanceled

	free := finished("free", pricing.CourtSquash, pricing.IntervalDay, 0, sessions.MethodNone, at(11, 0))

	yesterday := finished("yesterday", pricing.CourtSquash, pricing.IntervalEvening, 80, sessions.MethodCash, at(-1, 0))

	return []sessions.Session{evening, student, table, day, canceled, free, yesterday}
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("%s: expected %d, got %s", label, want, got)
	}
}

// --- Aggregate Tests ---

func TestAggregate_Totals(t *testing.T) {
	r := Aggregate(daySessions(), reportDay, pricing.DefaultCatalog())

	if r.Date != "2026-10-14" {
		t.Errorf("expected date 2026-10-14, got %s", r.Date)
	}
	if r.Cash.Sessions != 3 || r.Card.Sessions != 1 || r.TotalSessions != 4 {
		t.Errorf("unexpected counts cash=%d card=%d total=%d", r.Cash.Sessions, r.Card.Sessions, r.TotalSessions)
	}
	assertMoney(t, "cash", r.Cash.Revenue, 157)
	assertMoney(t, "card", r.Card.Revenue, 60)
	assertMoney(t, "total", r.TotalRevenue, 217)
}

func TestAggregate_RateBreakdown(t *testing.T) {
	r := Aggregate(daySessions(), reportDay, pricing.DefaultCatalog())

	want := []struct {
		category pricing.RateCategory
		cards    int
		revenue  int64
	}{
		{pricing.RateEvening, 2, 60}, // 65 minus the racket
		{pricing.RateDay, 0, 50},
		{pricing.RateFixed, 0, 30}, // 42 minus two waters
	}
	if len(r.Cash.Rates) != len(want) {
		t.Fatalf("expected %d cash rate lines, got %+v", len(want), r.Cash.Rates)
	}
	for i, w := range want {
		got := r.Cash.Rates[i]
		if got.Category != w.category || got.DiscountCards != w.cards || got.Count != 1 {
			t.Errorf("line %d: expected %s/%d, got %+v", i, w.category, w.cards, got)
		}
		assertMoney(t, got.Label, got.Revenue, w.revenue)
	}

	if len(r.Card.Rates) != 1 || r.Card.Rates[0].Category != pricing.RateStudent {
		t.Errorf("expected one student card line, got %+v", r.Card.Rates)
	}
}

func TestAggregate_ItemBreakdown(t *testing.T) {
	r := Aggregate(daySessions(), reportDay, pricing.DefaultCatalog())

	if len(r.Cash.Equipment) != 1 || r.Cash.Equipment[0].ItemID != "racket" || r.Cash.Equipment[0].Count != 1 {
		t.Errorf("unexpected equipment %+v", r.Cash.Equipment)
	}
	if len(r.Cash.Refreshments) != 1 || r.Cash.Refreshments[0].Count != 2 {
		t.Fatalf("unexpected refreshments %+v", r.Cash.Refreshments)
	}
	assertMoney(t, "water", r.Cash.Refreshments[0].Revenue, 12)
	if len(r.Card.Equipment) != 0 || r.Card.Refreshments == nil {
		t.Errorf("expected empty, non-nil card item lists, got %+v", r.Card)
	}
}

func TestAggregate_RateTiesKeepChronologicalOrder(t *testing.T) {
	late := finished("late", pricing.CourtSquash, pricing.IntervalWeekend, 80, sessions.MethodCash, at(21, 0))
	early := finished("early", pricing.CourtSquash, pricing.IntervalEvening, 80, sessions.MethodCash, at(18, 0))

	r := Aggregate([]sessions.Session{late, early}, reportDay, pricing.DefaultCatalog())
	if r.Cash.Rates[0].Category != pricing.RateEvening || r.Cash.Rates[1].Category != pricing.RateWeekend {
		t.Errorf("expected evening before weekend on a tie, got %+v", r.Cash.Rates)
	}
}

func TestAggregate_UsesLocalCalendarDay(t *testing.T) {
	bucharest := time.FixedZone("EEST", 3*60*60)
	// 22:30 UTC on the 13th is 01:30 on the 14th in Bucharest.
	s := finished("night", pricing.CourtSquash, pricing.IntervalEvening, 80, sessions.MethodCard,
		time.Date(2026, 10, 13, 22, 30, 0, 0, time.UTC))

	local := Aggregate([]sessions.Session{s}, time.Date(2026, 10, 14, 12, 0, 0, 0, bucharest), pricing.DefaultCatalog())
	if local.TotalSessions != 1 {
		t.Errorf("expected the session on the local 14th, got %d", local.TotalSessions)
	}
	utc := Aggregate([]sessions.Session{s}, reportDay, pricing.DefaultCatalog())
	if utc.TotalSessions != 0 {
		t.Errorf("expected no session on the UTC 14th, got %d", utc.TotalSessions)
	}
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil, reportDay, pricing.DefaultCatalog())
	if r.TotalSessions != 0 || !r.TotalRevenue.IsZero() || r.Cash.Rates == nil {
		t.Errorf("expected zeroed report with empty lists, got %+v", r)
	}
}

// --- Service Tests ---

func TestDaily_MergesCourts(t *testing.T) {
	all := daySessions()
	src := &mockSource{allFinishedFn: func(context.Context) (map[string][]sessions.Session, error) {
		return map[string][]sessions.Session{
			"squash-1":     all[:2],
			"table-tennis": all[2:],
		}, nil
	}}
	svc := NewReportService(src, pricing.DefaultCatalog(), time.UTC)

	r, err := svc.Daily(context.Background(), reportDay.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoney(t, "total", r.TotalRevenue, 217)
}

func TestDaily_SourceError(t *testing.T) {
	src := &mockSource{allFinishedFn: func(context.Context) (map[string][]sessions.Session, error) {
		return nil, errors.New("redis down")
	}}
	svc := NewReportService(src, pricing.DefaultCatalog(), time.UTC)

	if _, err := svc.Daily(context.Background(), reportDay); err == nil {
		t.Fatal("expected source error")
	}
}

// --- Export Tests ---

func TestWriteCSV(t *testing.T) {
	r := Aggregate(daySessions(), reportDay, pricing.DefaultCatalog())

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if strings.Join(records[0], ",") != "Category,Item,Cash Qty,Cash Revenue,Card Qty,Card Revenue,Total Qty,Total Revenue" {
		t.Errorf("unexpected header %v", records[0])
	}
	wantRates := []string{
		"Court Revenue,Squash evening, 2 discount cards,1,60.00,0,0.00,1,60.00",
		"Court Revenue,Squash student,0,0.00,1,60.00,1,60.00",
		"Court Revenue,Squash day,1,50.00,0,0.00,1,50.00",
		"Court Revenue,Table tennis,1,30.00,0,0.00,1,30.00",
	}
	for i, want := range wantRates {
		if got := strings.Join(records[1+i], ","); got != want {
			t.Errorf("rate row %d: expected %q, got %q", i, want, got)
		}
	}
	if strings.Join(records[5], "") != "" {
		t.Errorf("expected blank separator after court revenue, got %v", records[5])
	}
	if got := strings.Join(records[6], ","); got != "Equipment,Racket,1,5.00,0,0.00,1,5.00" {
		t.Errorf("unexpected equipment row %q", got)
	}
	if got := strings.Join(records[8], ","); got != "Refreshments,Water,2,12.00,0,0.00,2,12.00" {
		t.Errorf("unexpected refreshment row %q", got)
	}

	last := records[len(records)-1]
	if strings.Join(last, ",") != "Summary,Grand Total,3,157.00,1,60.00,4,217.00" {
		t.Errorf("unexpected grand total row %v", last)
	}
	if len(records) != 13 {
		t.Errorf("expected 13 rows, got %d", len(records))
	}
}
