// Package notify delivers best-effort user notifications (welcome mail,
// login alerts). Delivery runs detached from the request path: failures are
// logged and recorded as NotificationDispatched events, never surfaced to the
// authentication decision.
package notify

import "context"

// Kind selects the notification template.
type Kind string

const (
	KindWelcome    Kind = "welcome"
	KindLoginAlert Kind = "login_alert"
)

// Notifier sends one notification. Implementations must bound their own
// timeouts via ctx and must not panic into the caller.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipient string, data map[string]string) error
}
