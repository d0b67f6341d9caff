package domain

import "time"

// AuditLog is one recorded authentication-path action with its request
// context. Written best-effort; never part of the authentication decision.
type AuditLog struct {
	ID        string
	AccountID string
	Action    string
	Resource  string
	IP        string
	UserAgent string
	Metadata  string
	CreatedAt time.Time
}
