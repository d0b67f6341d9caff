package domain

import (
	"errors"
	"testing"
)

// plainHasher is a test double; real hashing is covered in internal/security.
type plainHasher struct{}

func (plainHasher) Hash(password []byte) (string, error) { return "h:" + string(password), nil }

func (plainHasher) Compare(hash string, password []byte) error {
	if hash != "h:"+string(password) {
		return errors.New("mismatch")
	}
	return nil
}

func mustName(t *testing.T, raw string) DisplayName {
	t.Helper()
	n, err := NewDisplayName(raw)
	if err != nil {
		t.Fatalf("NewDisplayName(%q): %v", raw, err)
	}
	return n
}

func mustEmail(t *testing.T, raw string) EmailAddress {
	t.Helper()
	e, err := NewEmailAddress(raw)
	if err != nil {
		t.Fatalf("NewEmailAddress(%q): %v", raw, err)
	}
	return e
}

func newTestClassifier() Classifier { return NewSentinelClassifier("PRIMARY-ORG") }

func newCredentialIdentity(t *testing.T) *Identity {
	t.Helper()
	id, err := NewWithCredential(plainHasher{}, newTestClassifier(), mustName(t, "alice smith"), mustEmail(t, "alice@example.com"), "correct-horse", nil)
	if err != nil {
		t.Fatalf("NewWithCredential: %v", err)
	}
	return id
}

func TestNewWithCredential_EmitsRegistered(t *testing.T) {
	id := newCredentialIdentity(t)
	if !id.Active {
		t.Error("new identity should be active")
	}
	if id.Role != RoleSecondary {
		t.Errorf("role = %q, want %q (no affiliation code)", id.Role, RoleSecondary)
	}
	evts := id.DrainEvents()
	if len(evts) != 1 {
		t.Fatalf("got %d events, want 1", len(evts))
	}
	reg, ok := evts[0].(IdentityRegistered)
	if !ok {
		t.Fatalf("event type = %T, want IdentityRegistered", evts[0])
	}
	if reg.Origin != OriginCredential {
		t.Errorf("origin = %q, want %q", reg.Origin, OriginCredential)
	}
	if reg.AggregateID() != id.ID {
		t.Errorf("aggregate id = %q, want %q", reg.AggregateID(), id.ID)
	}
}

func TestNewWithCredential_PrimaryRoleFromSentinelCode(t *testing.T) {
	code, err := NewAffiliationCode("PRIMARY-ORG")
	if err != nil {
		t.Fatalf("NewAffiliationCode: %v", err)
	}
	id, err := NewWithCredential(plainHasher{}, newTestClassifier(), mustName(t, "bob jones"), mustEmail(t, "bob@example.com"), "password123", &code)
	if err != nil {
		t.Fatalf("NewWithCredential: %v", err)
	}
	if id.Role != RolePrimary {
		t.Errorf("role = %q, want %q", id.Role, RolePrimary)
	}
}

func TestNewWithCredential_ShortPassword(t *testing.T) {
	_, err := NewWithCredential(plainHasher{}, newTestClassifier(), mustName(t, "alice smith"), mustEmail(t, "alice@example.com"), "short", nil)
	if !IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestNewWithExternalIdentity_PlaceholderDigest(t *testing.T) {
	ext, _ := NewExternalID("prov|abc")
	id, err := NewWithExternalIdentity(plainHasher{}, newTestClassifier(), mustName(t, "carol lee"), mustEmail(t, "carol@example.com"), nil, ext)
	if err != nil {
		t.Fatalf("NewWithExternalIdentity: %v", err)
	}
	if id.CredentialDigest == "" {
		t.Error("placeholder credential digest is empty; record shape must be uniform")
	}
	if id.ExternalIdentityID == nil || *id.ExternalIdentityID != ext {
		t.Errorf("external id = %v, want %q", id.ExternalIdentityID, ext)
	}
	evts := id.DrainEvents()
	if len(evts) != 1 {
		t.Fatalf("got %d events, want 1", len(evts))
	}
	if reg := evts[0].(IdentityRegistered); reg.Origin != OriginExternal {
		t.Errorf("origin = %q, want %q", reg.Origin, OriginExternal)
	}
}

func TestAuthenticateWithCredential(t *testing.T) {
	id := newCredentialIdentity(t)
	id.DrainEvents()

	if err := id.AuthenticateWithCredential(plainHasher{}, "wrong-password"); !errors.Is(err, ErrCredentialMismatch) {
		t.Fatalf("wrong password: want ErrCredentialMismatch, got %v", err)
	}
	if n := len(id.DrainEvents()); n != 0 {
		t.Fatalf("failed auth emitted %d events, want 0", n)
	}

	if err := id.AuthenticateWithCredential(plainHasher{}, "correct-horse"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
	evts := id.DrainEvents()
	if len(evts) != 1 {
		t.Fatalf("got %d events, want 1", len(evts))
	}
	if auth := evts[0].(IdentityAuthenticated); auth.Origin != OriginCredential {
		t.Errorf("origin = %q, want %q", auth.Origin, OriginCredential)
	}
}

func TestAuthenticate_DeactivatedFailsClosed(t *testing.T) {
	id := newCredentialIdentity(t)
	id.DrainEvents()
	if err := id.Deactivate(); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	if err := id.AuthenticateWithCredential(plainHasher{}, "correct-horse"); !errors.Is(err, ErrDeactivated) {
		t.Fatalf("credential auth on deactivated: want ErrDeactivated, got %v", err)
	}
	if err := id.AuthenticateWithExternalIdentity(); !errors.Is(err, ErrDeactivated) {
		t.Fatalf("external auth on deactivated: want ErrDeactivated, got %v", err)
	}
	if n := len(id.DrainEvents()); n != 0 {
		t.Fatalf("deactivated auth emitted %d events, want 0", n)
	}
}

func TestMutations_RejectedWhenDeactivated(t *testing.T) {
	id := newCredentialIdentity(t)
	if err := id.Deactivate(); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	ext, _ := NewExternalID("prov|x")
	if err := id.LinkExternalIdentity(ext); !errors.Is(err, ErrDeactivated) {
		t.Errorf("LinkExternalIdentity: want ErrDeactivated, got %v", err)
	}
	if err := id.ChangeCredential(plainHasher{}, "new-password-1"); !errors.Is(err, ErrDeactivated) {
		t.Errorf("ChangeCredential: want ErrDeactivated, got %v", err)
	}
	if err := id.ChangeEmail(mustEmail(t, "new@example.com")); !errors.Is(err, ErrDeactivated) {
		t.Errorf("ChangeEmail: want ErrDeactivated, got %v", err)
	}
	if err := id.UpdateAffiliation(newTestClassifier(), nil); !errors.Is(err, ErrDeactivated) {
		t.Errorf("UpdateAffiliation: want ErrDeactivated, got %v", err)
	}
	if err := id.Deactivate(); !errors.Is(err, ErrAlreadyDeactivated) {
		t.Errorf("double Deactivate: want ErrAlreadyDeactivated, got %v", err)
	}

	if err := id.Reactivate(); err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if err := id.Reactivate(); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("double Reactivate: want ErrAlreadyActive, got %v", err)
	}
	if err := id.AuthenticateWithCredential(plainHasher{}, "correct-horse"); err != nil {
		t.Errorf("auth after reactivation: %v", err)
	}
}

func TestLinkExternalIdentity(t *testing.T) {
	id := newCredentialIdentity(t)
	ext, _ := NewExternalID("prov|first")
	if err := id.LinkExternalIdentity(ext); err != nil {
		t.Fatalf("LinkExternalIdentity: %v", err)
	}
	if id.CredentialDigest == "" {
		t.Error("merge must keep the original credential digest")
	}
	other, _ := NewExternalID("prov|second")
	if err := id.LinkExternalIdentity(other); !errors.Is(err, ErrExternalIDLinked) {
		t.Errorf("second link: want ErrExternalIDLinked, got %v", err)
	}
}

func TestUpdateAffiliation_RecomputesRole(t *testing.T) {
	id := newCredentialIdentity(t)
	code, _ := NewAffiliationCode("PRIMARY-ORG")
	if err := id.UpdateAffiliation(newTestClassifier(), &code); err != nil {
		t.Fatalf("UpdateAffiliation: %v", err)
	}
	if id.Role != RolePrimary {
		t.Errorf("role = %q, want %q", id.Role, RolePrimary)
	}
	if err := id.UpdateAffiliation(newTestClassifier(), nil); err != nil {
		t.Fatalf("UpdateAffiliation(nil): %v", err)
	}
	if id.Role != RoleSecondary {
		t.Errorf("role = %q, want %q after clearing code", id.Role, RoleSecondary)
	}
}

func TestDrainEvents_Idempotent(t *testing.T) {
	id := newCredentialIdentity(t)
	if err := id.AuthenticateWithCredential(plainHasher{}, "correct-horse"); err != nil {
		t.Fatalf("auth: %v", err)
	}
	first := id.DrainEvents()
	if len(first) != 2 {
		t.Fatalf("first drain: got %d events, want 2", len(first))
	}
	if first[0].Type() != EventTypeIdentityRegistered || first[1].Type() != EventTypeIdentityAuthenticated {
		t.Errorf("event order = %q, %q", first[0].Type(), first[1].Type())
	}
	if second := id.DrainEvents(); len(second) != 0 {
		t.Fatalf("second drain: got %d events, want 0", len(second))
	}
}
