// Package audit records authentication-path actions with their request
// context. Writes are best-effort: an audit failure is logged and never
// affects the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/audit/domain"
	auditrepo "identity-plane/internal/audit/repository"
)

// Audit actions recorded by the auth paths.
const (
	ActionRegister    = "auth.register"
	ActionLogin       = "auth.login"
	ActionLoginFailed = "auth.login_failed"
	ActionMerge       = "auth.merge"
	ResourceIdentity  = "identity"
)

// Logger writes a single audit event with explicit action/resource and the
// request's client metadata.
type Logger interface {
	LogEvent(ctx context.Context, accountID, action, resource, ip, userAgent, metadata string)
}

// RepoLogger implements Logger on top of the audit repository.
type RepoLogger struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

// NewLogger returns a Logger persisting to repo.
func NewLogger(repo auditrepo.Repository, log *zap.Logger) *RepoLogger {
	return &RepoLogger{repo: repo, log: log}
}

// LogEvent writes one audit entry. Errors are logged, not returned.
func (l *RepoLogger) LogEvent(ctx context.Context, accountID, action, resource, ip, userAgent, metadata string) {
	if l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		UserAgent: userAgent,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("audit: failed to log event",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err))
	}
}

// Nop is a Logger that discards everything; used when auditing is disabled.
type Nop struct{}

func (Nop) LogEvent(ctx context.Context, accountID, action, resource, ip, userAgent, metadata string) {
}
