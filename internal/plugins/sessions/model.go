// Package sessions runs the booking lifecycle of every court: upcoming
// bookings, the single active session, and the finished history. All state
// for all courts lives in one persisted document; each mutation rewrites
// the owning court's part of it.
package sessions

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
)

// Status is the lifecycle stage of a session.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// PaymentStatus records how a session was settled.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentCanceled PaymentStatus = "canceled"
)

// PaymentMethod is how a paid session was settled. The zero value means no
// method and is encoded as JSON null.
type PaymentMethod string

const (
	MethodNone PaymentMethod = ""
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

// MarshalJSON encodes MethodNone as null.
func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	if m == MethodNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null or a string.
func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*m = MethodNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = PaymentMethod(s)
	return nil
}

// DefaultPlayerName replaces a blank player name.
const DefaultPlayerName = "Guest"

// Session is one booking or usage of a court.
type Session struct {
	ID      string            `json:"id"`
	CourtID string            `json:"courtId"`
	Type    pricing.CourtType `json:"type"`

	// HourlyRate is the court's base rate when the session was created.
	HourlyRate decimal.Decimal `json:"hourlyRate"`

	ScheduledDuration int     `json:"scheduledDuration"` // Booked hours, at least 1.
	ScheduledTime     string  `json:"scheduledTime"`     // "H:MM", hour 7-23.
	ScheduledDate     *string `json:"scheduledDate,omitempty"`

	StartTime      *time.Time `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	ActualDuration int        `json:"actualDuration"` // Elapsed seconds while active.

	IsStudent            bool                    `json:"isStudent"`
	SelectedTimeInterval pricing.TimeInterval    `json:"selectedTimeInterval"`
	DiscountCards        int                     `json:"discountCards"`
	HasSubscription      bool                    `json:"hasSubscription"`
	Items                []pricing.ItemSelection `json:"items"`

	// Cost is an estimate until the session ends, then the charged amount.
	Cost decimal.Decimal `json:"cost"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`

	PlayerName  string `json:"playerName"`
	ContactInfo string `json:"contactInfo"`
	Notes       string `json:"notes"`
}

// PricingInputs extracts the fields the pricing rules look at.
func (s *Session) PricingInputs() pricing.Inputs {
	return pricing.Inputs{
		CourtType:         s.Type,
		HourlyRate:        s.HourlyRate,
		ScheduledDuration: s.ScheduledDuration,
		IsStudent:         s.IsStudent,
		Interval:          s.SelectedTimeInterval,
		DiscountCards:     s.DiscountCards,
		HasSubscription:   s.HasSubscription,
		Items:             s.Items,
	}
}

// ItemsCost prices the session's add-ons against cat.
func (s *Session) ItemsCost(cat *pricing.Catalog) decimal.Decimal {
	return cat.ItemsCost(s.Items)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Items = append([]pricing.ItemSelection(nil), s.Items...)
	if c.Items == nil {
		c.Items = []pricing.ItemSelection{}
	}
	if s.ScheduledDate != nil {
		d := *s.ScheduledDate
		c.ScheduledDate = &d
	}
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}

// CourtDocument is one court's persisted state.
type CourtDocument struct {
	Upcoming []Session `json:"upcoming"`
	Active   *Session  `json:"active"`
	Finished []Session `json:"finished"` // Most recent first.
}

// NewCourtDocument returns an empty court document.
func NewCourtDocument() *CourtDocument {
	return &CourtDocument{Upcoming: []Session{}, Finished: []Session{}}
}

// Clone returns a deep copy.
func (d *CourtDocument) Clone() *CourtDocument {
	c := NewCourtDocument()
	for i := range d.Upcoming {
		c.Upcoming = append(c.Upcoming, *d.Upcoming[i].Clone())
	}
	c.Active = d.Active.Clone()
	for i := range d.Finished {
		c.Finished = append(c.Finished, *d.Finished[i].Clone())
	}
	return c
}

// Find looks a session up in upcoming, then active, then finished.
func (d *CourtDocument) Find(id string) *Session {
	for i := range d.Upcoming {
		if d.Upcoming[i].ID == id {
			return &d.Upcoming[i]
		}
	}
	if d.Active != nil && d.Active.ID == id {
		return d.Active
	}
	for i := range d.Finished {
		if d.Finished[i].ID == id {
			return &d.Finished[i]
		}
	}
	return nil
}

// upcomingIndex returns the position of id in Upcoming, or -1.
func (d *CourtDocument) upcomingIndex(id string) int {
	for i := range d.Upcoming {
		if d.Upcoming[i].ID == id {
			return i
		}
	}
	return -1
}

// Document is the whole persisted state, keyed by court ID.
type Document struct {
	Courts map[string]*CourtDocument `json:"courts"`
}

// --- DTOs ---

// CreateSessionInput is the caller-supplied data for a new booking or walk-in.
type CreateSessionInput struct {
	PlayerName           string                  `json:"playerName"`
	ContactInfo          string                  `json:"contactInfo"`
	Notes                string                  `json:"notes"`
	ScheduledDuration    int                     `json:"scheduledDuration"`
	ScheduledTime        string                  `json:"scheduledTime"`
	ScheduledDate        *string                 `json:"scheduledDate"`
	IsStudent            bool                    `json:"isStudent"`
	SelectedTimeInterval pricing.TimeInterval    `json:"selectedTimeInterval"`
	DiscountCards        int                     `json:"discountCards"`
	HasSubscription      bool                    `json:"hasSubscription"`
	Items                []pricing.ItemSelection `json:"items"`
}

// SessionPatch is a partial update. Nil fields are left unchanged.
type SessionPatch struct {
	PlayerName           *string                  `json:"playerName"`
	ContactInfo          *string                  `json:"contactInfo"`
	Notes                *string                  `json:"notes"`
	ScheduledDuration    *int                     `json:"scheduledDuration"`
	ScheduledTime        *string                  `json:"scheduledTime"`
	ScheduledDate        *string                  `json:"scheduledDate"`
	IsStudent            *bool                    `json:"isStudent"`
	SelectedTimeInterval *pricing.TimeInterval    `json:"selectedTimeInterval"`
	DiscountCards        *int                     `json:"discountCards"`
	HasSubscription      *bool                    `json:"hasSubscription"`
	Items                *[]pricing.ItemSelection `json:"items"`
}

// EndSessionInput settles the active session.
type EndSessionInput struct {
	// FinalCost is the amount charged. Nil means the current computed cost.
	FinalCost     *decimal.Decimal `json:"finalCost"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	Cancel        bool             `json:"cancel"`
}

// CourtSnapshot pairs a court with its current document.
type CourtSnapshot struct {
	Court    Court          `json:"court"`
	Document *CourtDocument `json:"sessions"`
}
