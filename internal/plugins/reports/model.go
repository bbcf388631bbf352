// Package reports aggregates finished, paid sessions into a daily revenue
// report split by payment method, and exports it as CSV.
package reports

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
)

// RateKey identifies one row of the court revenue breakdown.
type RateKey struct {
	CourtType     pricing.CourtType    `json:"courtType"`
	Category      pricing.RateCategory `json:"category"`
	DiscountCards int                  `json:"discountCards"`
}

// Label renders the key for display, e.g. "Squash evening, 2 discount cards".
func (k RateKey) Label() string {
	var b strings.Builder
	switch k.CourtType {
	case pricing.CourtTableTennis:
		b.WriteString("Table tennis")
	default:
		b.WriteString("Squash")
	}
	if k.Category != pricing.RateFixed {
		b.WriteString(" " + string(k.Category))
	}
	switch k.DiscountCards {
	case 0:
	case 1:
		b.WriteString(", 1 discount card")
	default:
		fmt.Fprintf(&b, ", %d discount cards", k.DiscountCards)
	}
	return b.String()
}

// RateLine is the court-only revenue for one rate key.
type RateLine struct {
	RateKey
	Label   string          `json:"label"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// perSession is the average court revenue per session.
func (l RateLine) perSession() decimal.Decimal {
	if l.Count == 0 {
		return decimal.Zero
	}
	return l.Revenue.Div(decimal.NewFromInt(int64(l.Count)))
}

// ItemLine is the quantity sold and revenue of one catalog item.
type ItemLine struct {
	ItemID  string          `json:"itemId"`
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// MethodSummary accumulates everything paid with one payment method.
type MethodSummary struct {
	Method       string          `json:"method"`
	Sessions     int             `json:"sessions"`
	Revenue      decimal.Decimal `json:"revenue"`
	Rates        []RateLine      `json:"rates"`
	Equipment    []ItemLine      `json:"equipment"`
	Refreshments []ItemLine      `json:"refreshments"`
}

// DailyReport is the revenue of one local calendar day.
type DailyReport struct {
	Date          string          `json:"date"` // YYYY-MM-DD
	Cash          MethodSummary   `json:"cash"`
	Card          MethodSummary   `json:"card"`
	TotalSessions int             `json:"totalSessions"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}
