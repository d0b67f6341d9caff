package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"identity-plane/internal/identity/domain"
)

// Publisher is the slice of the event dispatcher the handler needs to report
// notification outcomes back into the event stream.
type Publisher interface {
	Publish(evts ...domain.Event)
}

// EventHandler reacts to identity lifecycle events with a notification:
// registration sends a welcome, authentication sends a login alert. Every
// attempt produces a NotificationDispatched event recording the outcome.
type EventHandler struct {
	notifier  Notifier
	publisher Publisher
	timeout   time.Duration
	log       *zap.Logger
}

// NewEventHandler returns an EventHandler. timeout bounds each provider call.
func NewEventHandler(notifier Notifier, publisher Publisher, timeout time.Duration, log *zap.Logger) *EventHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{notifier: notifier, publisher: publisher, timeout: timeout, log: log}
}

// Types returns the event types the handler subscribes to.
func (h *EventHandler) Types() []domain.EventType {
	return []domain.EventType{
		domain.EventTypeIdentityRegistered,
		domain.EventTypeIdentityAuthenticated,
	}
}

// Handle implements events.Handler.
func (h *EventHandler) Handle(ctx context.Context, evt domain.Event) {
	var kind Kind
	var recipient string
	var data map[string]string

	switch e := evt.(type) {
	case domain.IdentityRegistered:
		kind = KindWelcome
		recipient = e.Email
		data = map[string]string{
			"display_name": e.DisplayName,
			"role":         string(e.Role),
		}
	case domain.IdentityAuthenticated:
		kind = KindLoginAlert
		recipient = e.Email
	default:
		return
	}

	if h.notifier == nil {
		// Notifications disabled; still record the outcome for observers.
		h.publisher.Publish(domain.NewNotificationDispatched(evt.AggregateID(), string(kind), recipient, false, "notifier disabled"))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	err := h.notifier.Notify(sendCtx, kind, recipient, data)

	success := err == nil
	reason := ""
	if err != nil {
		reason = err.Error()
		h.log.Warn("notification dispatch failed",
			zap.String("kind", string(kind)),
			zap.String("aggregate_id", evt.AggregateID()),
			zap.Error(err))
	}
	h.publisher.Publish(domain.NewNotificationDispatched(evt.AggregateID(), string(kind), recipient, success, reason))
}
