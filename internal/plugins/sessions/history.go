package sessions

import (
	"time"

	"github.com/keyxmakerx/courtside/internal/apperror"
)

// Timeframe selects which finished sessions a history reset keeps.
type Timeframe string

const (
	TimeframeYesterday Timeframe = "yesterday" // Remove sessions that ended before yesterday.
	TimeframeWeek      Timeframe = "week"      // Remove sessions older than one week.
	TimeframeMonth     Timeframe = "month"     // Remove sessions older than one month.
	TimeframeAll       Timeframe = "all"       // Remove every finished session.
)

// ParseTimeframe validates a timeframe name.
func ParseTimeframe(v string) (Timeframe, error) {
	switch tf := Timeframe(v); tf {
	case TimeframeYesterday, TimeframeWeek, TimeframeMonth, TimeframeAll:
		return tf, nil
	}
	return "", apperror.NewValidation("timeframe must be one of yesterday, week, month, all")
}

// Cutoff returns the instant before which finished sessions are removed,
// measured from the start of the day in now's location. TimeframeAll
// returns the zero time, meaning no cutoff.
func (tf Timeframe) Cutoff(now time.Time) time.Time {
	today := startOfDay(now)
	switch tf {
	case TimeframeYesterday:
		return today.AddDate(0, 0, -1)
	case TimeframeWeek:
		return today.AddDate(0, 0, -7)
	case TimeframeMonth:
		return today.AddDate(0, -1, 0)
	}
	return time.Time{}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
