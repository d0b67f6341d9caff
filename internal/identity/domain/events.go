package domain

import (
	"time"

	"github.com/google/uuid"
)

// Domain events are pure data. The aggregate records them synchronously; a
// separate dispatcher decides what (if anything) reacts to them.

// EventType identifies a concrete event variant.
type EventType string

const (
	EventTypeIdentityRegistered     EventType = "identity.registered"
	EventTypeIdentityAuthenticated  EventType = "identity.authenticated"
	EventTypeNotificationDispatched EventType = "notification.dispatched"
)

// Origin records which of the two authentication paths produced an event.
type Origin string

const (
	OriginCredential Origin = "credential"
	OriginExternal   Origin = "external"
)

// Event is the common shape of all domain events.
type Event interface {
	EventID() string
	Type() EventType
	AggregateID() string
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by every event variant.
type BaseEvent struct {
	ID        string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Aggregate string    `json:"aggregate_id"`
	At        time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) Type() EventType       { return e.EventType }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }
func (e BaseEvent) OccurredAt() time.Time { return e.At }

func newBaseEvent(t EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		EventType: t,
		Aggregate: aggregateID,
		At:        time.Now().UTC(),
	}
}

// IdentityRegistered is emitted once when an identity is created, on either
// origin path.
type IdentityRegistered struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Origin      Origin `json:"origin"`
}

// IdentityAuthenticated is emitted on every successful authentication. Failed
// attempts never produce it.
type IdentityAuthenticated struct {
	BaseEvent
	Email  string `json:"email"`
	Origin Origin `json:"origin"`
}

// NotificationDispatched records the outcome of a best-effort notification.
// Success false is observability data, never a request failure.
type NotificationDispatched struct {
	BaseEvent
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
}

// NewNotificationDispatched builds a NotificationDispatched event for the
// given aggregate. reason should be empty on success.
func NewNotificationDispatched(aggregateID, kind, recipient string, success bool, reason string) NotificationDispatched {
	return NotificationDispatched{
		BaseEvent: newBaseEvent(EventTypeNotificationDispatched, aggregateID),
		Kind:      kind,
		Recipient: recipient,
		Success:   success,
		Reason:    reason,
	}
}
