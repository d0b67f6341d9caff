package repository

import (
	"context"
	"errors"

	"identity-plane/internal/identity/domain"
)

// ErrDuplicateIdentity is surfaced when a write loses a uniqueness race on
// email or external identity id. The store is the sole serialization point;
// callers treat this as equivalent to "found by lookup".
var ErrDuplicateIdentity = errors.New("duplicate identity")

// ErrNotFound is returned by Update when the identity does not exist.
var ErrNotFound = errors.New("identity not found")

// Repository defines persistence for identities. Lookups return (nil, nil)
// when no record matches; errors are reserved for store failures.
type Repository interface {
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Identity, error)
	Create(ctx context.Context, identity *domain.Identity) error
	Update(ctx context.Context, identity *domain.Identity) error
}
