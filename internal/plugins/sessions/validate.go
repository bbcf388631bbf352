package sessions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/keyxmakerx/courtside/internal/apperror"
	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
	"github.com/keyxmakerx/courtside/internal/sanitize"
)

// Text field limits, in runes.
const (
	maxPlayerName  = 100
	maxContactInfo = 200
	maxNotes       = 1000
)

// Opening hours for scheduledTime.
const (
	firstBookableHour = 7
	lastBookableHour  = 23
)

var scheduledTimePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// validateScheduledTime checks the "H:MM" booking time format.
func validateScheduledTime(v string) error {
	m := scheduledTimePattern.FindStringSubmatch(v)
	if m == nil {
		return apperror.NewValidation("scheduled time must look like H:MM")
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < firstBookableHour || hour > lastBookableHour || minute > 59 {
		return apperror.NewValidation(fmt.Sprintf("scheduled time must be between %d:00 and %d:59", firstBookableHour, lastBookableHour))
	}
	return nil
}

func validateScheduledDate(v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, *v); err != nil {
		return apperror.NewValidation("scheduled date must look like YYYY-MM-DD")
	}
	return nil
}

func validateInterval(v pricing.TimeInterval) error {
	switch v {
	case pricing.IntervalNone, pricing.IntervalDay, pricing.IntervalEvening, pricing.IntervalWeekend:
		return nil
	}
	return apperror.NewValidation(fmt.Sprintf("unknown time interval %q", v))
}

// validateSession checks the caller-controlled fields of s.
func validateSession(s *Session) error {
	if s.ScheduledDuration < 1 {
		return apperror.NewValidation("scheduled duration must be at least 1 hour")
	}
	if s.DiscountCards < 0 {
		return apperror.NewValidation("discount cards must not be negative")
	}
	if err := validateScheduledTime(s.ScheduledTime); err != nil {
		return err
	}
	if err := validateScheduledDate(s.ScheduledDate); err != nil {
		return err
	}
	return validateInterval(s.SelectedTimeInterval)
}

// normalize restores the entity invariants after any field change.
func normalize(s *Session) {
	s.PlayerName = sanitize.Truncate(sanitize.Text(s.PlayerName), maxPlayerName)
	if s.PlayerName == "" {
		s.PlayerName = DefaultPlayerName
	}
	s.ContactInfo = sanitize.Truncate(sanitize.Text(s.ContactInfo), maxContactInfo)
	s.Notes = sanitize.Truncate(sanitize.Text(s.Notes), maxNotes)
	if s.ScheduledDate != nil && *s.ScheduledDate == "" {
		s.ScheduledDate = nil
	}

	s.Items = normalizeItems(s.Items)

	if s.Type == pricing.CourtTableTennis {
		s.SelectedTimeInterval = pricing.IntervalNone
		s.IsStudent = false
	}
	if s.SelectedTimeInterval != pricing.IntervalDay {
		s.IsStudent = false
	}
}

// normalizeItems drops non-positive quantities and merges duplicate IDs,
// keeping first-seen order.
func normalizeItems(items []pricing.ItemSelection) []pricing.ItemSelection {
	out := make([]pricing.ItemSelection, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ItemID)
		if id == "" || it.Quantity <= 0 {
			continue
		}
		if i, ok := index[id]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, pricing.ItemSelection{ItemID: id, Quantity: it.Quantity})
	}
	return out
}

// applyPatch copies the non-nil fields of p onto s.
func applyPatch(s *Session, p SessionPatch) {
	if p.PlayerName != nil {
		s.PlayerName = *p.PlayerName
	}
	if p.ContactInfo != nil {
		s.ContactInfo = *p.ContactInfo
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.ScheduledDuration != nil {
		s.ScheduledDuration = *p.ScheduledDuration
	}
	if p.ScheduledTime != nil {
		s.ScheduledTime = *p.ScheduledTime
	}
	if p.ScheduledDate != nil {
		d := *p.ScheduledDate
		s.ScheduledDate = &d
	}
	if p.IsStudent != nil {
		s.IsStudent = *p.IsStudent
	}
	if p.SelectedTimeInterval != nil {
		s.SelectedTimeInterval = *p.SelectedTimeInterval
	}
	if p.DiscountCards != nil {
		s.DiscountCards = *p.DiscountCards
	}
	if p.HasSubscription != nil {
		s.HasSubscription = *p.HasSubscription
	}
	if p.Items != nil {
		s.Items = append([]pricing.ItemSelection(nil), (*p.Items)...)
	}
}
