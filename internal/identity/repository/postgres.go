package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"identity-plane/internal/identity/domain"
)

const uniqueViolationCode = "23505"

// PostgresRepository persists identities in Postgres. Uniqueness of email
// (among active records) and external id is enforced by the store's unique
// indexes, not in memory; violations map to ErrDuplicateIdentity.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, display_name, email, credential_digest, role,
	affiliation_code, affiliation_descriptor, external_identity_id,
	active, deactivated_at, created_at, updated_at`

// FindByID returns the identity for id, or nil if not found.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// FindByEmail returns the identity for email, or nil if not found. When an
// inactive record shares the email of an active one, the active record wins.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE email = $1
		 ORDER BY active DESC, created_at DESC
		 LIMIT 1`, email)
	return scanIdentity(row)
}

// FindByExternalID returns the identity linked to externalID (active or
// not), or nil if not found.
func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE external_identity_id = $1`, externalID)
	return scanIdentity(row)
}

// Create inserts the identity. Returns ErrDuplicateIdentity when the insert
// loses a uniqueness race.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		i.ID,
		i.DisplayName.String(),
		i.Email.String(),
		i.CredentialDigest,
		string(i.Role),
		affiliationCodeValue(i.AffiliationCode),
		i.AffiliationDescriptor,
		externalIDValue(i.ExternalIdentityID),
		i.Active,
		i.DeactivatedAt,
		i.CreatedAt,
		i.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	return err
}

// Update rewrites the mutable columns of the identity. Returns ErrNotFound
// when no row matches, ErrDuplicateIdentity on a uniqueness race (e.g. two
// merges linking the same external id).
func (r *PostgresRepository) Update(ctx context.Context, i *domain.Identity) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET
			display_name = $2,
			email = $3,
			credential_digest = $4,
			role = $5,
			affiliation_code = $6,
			affiliation_descriptor = $7,
			external_identity_id = $8,
			active = $9,
			deactivated_at = $10,
			updated_at = $11
		 WHERE id = $1`,
		i.ID,
		i.DisplayName.String(),
		i.Email.String(),
		i.CredentialDigest,
		string(i.Role),
		affiliationCodeValue(i.AffiliationCode),
		i.AffiliationDescriptor,
		externalIDValue(i.ExternalIdentityID),
		i.Active,
		i.DeactivatedAt,
		i.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var (
		i          domain.Identity
		name       string
		email      string
		role       string
		code       sql.NullString
		externalID sql.NullString
		deactAt    sql.NullTime
	)
	err := row.Scan(
		&i.ID, &name, &email, &i.CredentialDigest, &role,
		&code, &i.AffiliationDescriptor, &externalID,
		&i.Active, &deactAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Stored values were validated at construction; rehydrate without
	// re-running the constructors so legacy rows never fail a read.
	i.DisplayName = domain.DisplayName(name)
	i.Email = domain.EmailAddress(email)
	i.Role = domain.Role(role)
	if code.Valid {
		c := domain.AffiliationCode(code.String)
		i.AffiliationCode = &c
	}
	if externalID.Valid {
		e := domain.ExternalID(externalID.String)
		i.ExternalIdentityID = &e
	}
	if deactAt.Valid {
		t := deactAt.Time
		i.DeactivatedAt = &t
	}
	return &i, nil
}

func affiliationCodeValue(c *domain.AffiliationCode) any {
	if c == nil {
		return nil
	}
	return c.String()
}

func externalIDValue(e *domain.ExternalID) any {
	if e == nil {
		return nil
	}
	return e.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
