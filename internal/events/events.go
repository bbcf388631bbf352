// Package events publishes court session lifecycle events for downstream
// consumers (displays, accounting exports, notifications). Publishing is
// fire-and-forget: callers log failures and carry on, because a broker
// outage must never block a booking or a checkout.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event type constants. Each follows the "resource.verb" pattern.
const (
	TypeSessionCreated  = "session.created"
	TypeSessionUpdated  = "session.updated"
	TypeSessionCanceled = "session.canceled"
	TypeSessionStarted  = "session.started"
	TypeSessionFinished = "session.finished"
	TypeHistoryReset    = "history.reset"
)

// Event is the payload published for every persisted lifecycle transition.
type Event struct {
	Type          string           `json:"type"`
	CourtID       string           `json:"courtId,omitempty"`
	SessionID     string           `json:"sessionId,omitempty"`
	PlayerName    string           `json:"playerName,omitempty"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	PaymentStatus string           `json:"paymentStatus,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	Removed       int              `json:"removed,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
