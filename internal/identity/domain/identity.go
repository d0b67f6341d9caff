package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// CredentialHasher hashes and verifies plaintext credentials. The domain
// treats the digest as opaque; bcrypt parameters live in internal/security.
type CredentialHasher interface {
	Hash(password []byte) (string, error)
	Compare(hash string, password []byte) error
}

const (
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes; longer passwords are rejected
	// rather than silently truncated.
	maxPasswordLength = 72
)

// Identity is the aggregate root: the authoritative in-memory representation
// of one account. It owns all state transitions and records domain events as
// they happen; events are collected by the caller via DrainEvents.
//
// Exactly one origin path creates a record, but after a merge both the
// credential digest and the external identity id are populated.
type Identity struct {
	ID                    string
	DisplayName           DisplayName
	Email                 EmailAddress
	CredentialDigest      string
	Role                  Role
	AffiliationCode       *AffiliationCode
	AffiliationDescriptor string
	ExternalIdentityID    *ExternalID
	Active                bool
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time

	events []Event
}

// NewWithCredential creates an identity for the local-credential path. The
// plaintext password is hashed immediately and never stored.
func NewWithCredential(hasher CredentialHasher, classifier Classifier, name DisplayName, email EmailAddress, plaintextPassword string, code *AffiliationCode) (*Identity, error) {
	if err := validatePassword(plaintextPassword); err != nil {
		return nil, err
	}
	digest, err := hasher.Hash([]byte(plaintextPassword))
	if err != nil {
		return nil, err
	}
	id := newIdentity(classifier, name, email, digest, code)
	id.record(IdentityRegistered{
		BaseEvent:   newBaseEvent(EventTypeIdentityRegistered, id.ID),
		Email:       email.String(),
		DisplayName: name.String(),
		Role:        id.Role,
		Origin:      OriginCredential,
	})
	return id, nil
}

// NewWithExternalIdentity creates an identity for the federated path. A
// non-guessable placeholder credential digest is generated so the record has
// the same shape as a local one; it can never match a submitted password
// because the underlying secret is random and discarded.
func NewWithExternalIdentity(hasher CredentialHasher, classifier Classifier, name DisplayName, email EmailAddress, code *AffiliationCode, externalID ExternalID) (*Identity, error) {
	digest, err := placeholderDigest(hasher)
	if err != nil {
		return nil, err
	}
	id := newIdentity(classifier, name, email, digest, code)
	ext := externalID
	id.ExternalIdentityID = &ext
	id.record(IdentityRegistered{
		BaseEvent:   newBaseEvent(EventTypeIdentityRegistered, id.ID),
		Email:       email.String(),
		DisplayName: name.String(),
		Role:        id.Role,
		Origin:      OriginExternal,
	})
	return id, nil
}

func newIdentity(classifier Classifier, name DisplayName, email EmailAddress, digest string, code *AffiliationCode) *Identity {
	role, descriptor := classify(classifier, code)
	now := time.Now().UTC()
	return &Identity{
		ID:                    uuid.New().String(),
		DisplayName:           name,
		Email:                 email,
		CredentialDigest:      digest,
		Role:                  role,
		AffiliationCode:       code,
		AffiliationDescriptor: descriptor,
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// AuthenticateWithCredential verifies the plaintext password against the
// stored digest. A deactivated identity fails closed before any comparison.
// Emits IdentityAuthenticated on success only.
func (i *Identity) AuthenticateWithCredential(hasher CredentialHasher, plaintextPassword string) error {
	if !i.Active {
		return ErrDeactivated
	}
	if err := hasher.Compare(i.CredentialDigest, []byte(plaintextPassword)); err != nil {
		return ErrCredentialMismatch
	}
	i.record(IdentityAuthenticated{
		BaseEvent: newBaseEvent(EventTypeIdentityAuthenticated, i.ID),
		Email:     i.Email.String(),
		Origin:    OriginCredential,
	})
	return nil
}

// AuthenticateWithExternalIdentity records a federated authentication. The
// caller must have verified the external token out-of-band; the only check
// here is the active gate.
func (i *Identity) AuthenticateWithExternalIdentity() error {
	if !i.Active {
		return ErrDeactivated
	}
	i.record(IdentityAuthenticated{
		BaseEvent: newBaseEvent(EventTypeIdentityAuthenticated, i.ID),
		Email:     i.Email.String(),
		Origin:    OriginExternal,
	})
	return nil
}

// LinkExternalIdentity attaches a federated identity to a local account
// (merge). Rejected when deactivated or when an external id is already linked.
func (i *Identity) LinkExternalIdentity(externalID ExternalID) error {
	if !i.Active {
		return ErrDeactivated
	}
	if i.ExternalIdentityID != nil {
		return ErrExternalIDLinked
	}
	ext := externalID
	i.ExternalIdentityID = &ext
	i.touch()
	return nil
}

// UpdateAffiliation replaces the affiliation code and recomputes the role and
// descriptor together. Role is never mutated independently of the code.
func (i *Identity) UpdateAffiliation(classifier Classifier, code *AffiliationCode) error {
	if !i.Active {
		return ErrDeactivated
	}
	role, descriptor := classify(classifier, code)
	i.AffiliationCode = code
	i.Role = role
	i.AffiliationDescriptor = descriptor
	i.touch()
	return nil
}

// ChangeCredential replaces the credential digest with a hash of the new
// plaintext password.
func (i *Identity) ChangeCredential(hasher CredentialHasher, newPlaintextPassword string) error {
	if !i.Active {
		return ErrDeactivated
	}
	if err := validatePassword(newPlaintextPassword); err != nil {
		return err
	}
	digest, err := hasher.Hash([]byte(newPlaintextPassword))
	if err != nil {
		return err
	}
	i.CredentialDigest = digest
	i.touch()
	return nil
}

// ChangeEmail replaces the email address.
func (i *Identity) ChangeEmail(email EmailAddress) error {
	if !i.Active {
		return ErrDeactivated
	}
	i.Email = email
	i.touch()
	return nil
}

// Deactivate soft-deletes the identity. Terminal until Reactivate; there is
// no physical delete.
func (i *Identity) Deactivate() error {
	if !i.Active {
		return ErrAlreadyDeactivated
	}
	now := time.Now().UTC()
	i.Active = false
	i.DeactivatedAt = &now
	i.UpdatedAt = now
	return nil
}

// Reactivate reverses a deactivation.
func (i *Identity) Reactivate() error {
	if i.Active {
		return ErrAlreadyActive
	}
	i.Active = true
	i.DeactivatedAt = nil
	i.touch()
	return nil
}

// DrainEvents returns the pending events in the order they were recorded and
// clears them. A second consecutive call returns an empty slice.
func (i *Identity) DrainEvents() []Event {
	out := i.events
	i.events = nil
	return out
}

func (i *Identity) record(e Event) {
	i.events = append(i.events, e)
}

func (i *Identity) touch() {
	i.UpdatedAt = time.Now().UTC()
}

func classify(classifier Classifier, code *AffiliationCode) (Role, string) {
	if code == nil {
		return classifier.Classify("")
	}
	return classifier.Classify(code.String())
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if len(password) > maxPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at most 72 characters"}
	}
	return nil
}

func placeholderDigest(hasher CredentialHasher) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return hasher.Hash([]byte(hex.EncodeToString(secret)))
}
