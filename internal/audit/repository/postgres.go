package repository

import (
	"context"
	"database/sql"

	"identity-plane/internal/audit/domain"
)

// PostgresRepository persists audit logs in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the audit log. The log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	accountID := sql.NullString{String: a.AccountID, Valid: a.AccountID != ""}
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, account_id, action, resource, ip, user_agent, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, accountID, a.Action, a.Resource, a.IP, a.UserAgent, meta, a.CreatedAt,
	)
	return err
}

// ListByAccount returns audit logs for the account, newest first, paginated
// by limit and offset.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, action, resource, ip, user_agent, metadata, created_at
		 FROM audit_logs
		 WHERE account_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a         domain.AuditLog
			accountID sql.NullString
			meta      sql.NullString
		)
		if err := rows.Scan(&a.ID, &accountID, &a.Action, &a.Resource, &a.IP, &a.UserAgent, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.AccountID = accountID.String
		a.Metadata = meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
