package sessions

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
)

// Court is a bookable resource. Sessions copy Type and HourlyRate from it
// when they are created.
type Court struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       pricing.CourtType `json:"type"`
	HourlyRate decimal.Decimal   `json:"hourlyRate"`
}

// CourtRegistry is the fixed, ordered set of courts at the venue.
type CourtRegistry struct {
	courts []Court
	byID   map[string]Court
}

// NewCourtRegistry builds squash-1..squash-N followed by the table tennis
// tables. The first table is "table-tennis", further ones "table-tennis-2"
// and up.
func NewCourtRegistry(squashCourts, tables int, cat *pricing.Catalog) *CourtRegistry {
	r := &CourtRegistry{byID: make(map[string]Court)}
	for i := 1; i <= squashCourts; i++ {
		r.add(Court{
			ID:         fmt.Sprintf("squash-%d", i),
			Name:       fmt.Sprintf("Squash %d", i),
			Type:       pricing.CourtSquash,
			HourlyRate: cat.BaseRate(pricing.CourtSquash),
		})
	}
	for i := 1; i <= tables; i++ {
		c := Court{
			ID:         "table-tennis",
			Name:       "Table Tennis",
			Type:       pricing.CourtTableTennis,
			HourlyRate: cat.BaseRate(pricing.CourtTableTennis),
		}
		if i > 1 {
			c.ID = fmt.Sprintf("table-tennis-%d", i)
			c.Name = fmt.Sprintf("Table Tennis %d", i)
		}
		r.add(c)
	}
	return r
}

func (r *CourtRegistry) add(c Court) {
	r.courts = append(r.courts, c)
	r.byID[c.ID] = c
}

// All returns the courts in display order.
func (r *CourtRegistry) All() []Court {
	return append([]Court(nil), r.courts...)
}

// Lookup finds a court by ID.
func (r *CourtRegistry) Lookup(id string) (Court, bool) {
	c, ok := r.byID[id]
	return c, ok
}
