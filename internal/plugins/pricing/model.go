// Package pricing turns a session's pricing inputs into an hourly rate and a
// total cost. Everything here is pure: no I/O, no clock reads. Callers pass
// the reference time explicitly, already converted to the venue's location.
package pricing

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CourtType classifies the bookable resource.
type CourtType string

const (
	CourtSquash      CourtType = "squash"
	CourtTableTennis CourtType = "table-tennis"
)

// Valid reports whether t is a known court type.
func (t CourtType) Valid() bool {
	return t == CourtSquash || t == CourtTableTennis
}

// TimeInterval is a named squash pricing bucket. The zero value means no
// interval was selected and is encoded as JSON null.
type TimeInterval string

const (
	IntervalNone    TimeInterval = ""
	IntervalDay     TimeInterval = "day"
	IntervalEvening TimeInterval = "evening"
	IntervalWeekend TimeInterval = "weekend"
)

// MarshalJSON encodes IntervalNone as null.
func (i TimeInterval) MarshalJSON() ([]byte, error) {
	if i == IntervalNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(i))
}

// UnmarshalJSON accepts null or a string.
func (i *TimeInterval) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*i = IntervalNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = TimeInterval(s)
	return nil
}

// ItemCategory groups catalog items for display and reporting.
type ItemCategory string

const (
	CategoryEquipment   ItemCategory = "equipment"
	CategoryRefreshment ItemCategory = "refreshment"
	CategoryOther       ItemCategory = "other"
)

// AdditionalItem is a rentable or purchasable add-on with a fixed unit price.
type AdditionalItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category ItemCategory    `json:"category"`
}

// TimeIntervalOption is the squash rate for one interval.
type TimeIntervalOption struct {
	Value TimeInterval    `json:"value"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

// ItemSelection is a session's back-reference to a catalog item.
type ItemSelection struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// RateCategory names which rule produced a session's court rate.
type RateCategory string

const (
	RateDay          RateCategory = "day"
	RateEvening      RateCategory = "evening"
	RateWeekend      RateCategory = "weekend"
	RateStudent      RateCategory = "student"
	RateSubscription RateCategory = "subscription"
	RateFixed        RateCategory = "fixed"
)

// Inputs are the pricing-relevant fields of a session.
type Inputs struct {
	CourtType         CourtType
	HourlyRate        decimal.Decimal
	ScheduledDuration int
	IsStudent         bool
	Interval          TimeInterval
	DiscountCards     int
	HasSubscription   bool
	Items             []ItemSelection
}

// Quote is a cost broken down into its parts.
type Quote struct {
	Rate      decimal.Decimal `json:"rate"`
	CourtCost decimal.Decimal `json:"courtCost"`
	ItemsCost decimal.Decimal `json:"itemsCost"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}
