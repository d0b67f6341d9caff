package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"identity-plane/internal/audit"
	"identity-plane/internal/federation"
	"identity-plane/internal/identity/domain"
	"identity-plane/internal/identity/repository"
	"identity-plane/internal/security"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status
// codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrTokenMismatch      = errors.New("token email does not match supplied email")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
)

// CredentialRequest is the input for the local password path. DisplayName and
// AffiliationCode are only consulted when the email is not yet registered.
type CredentialRequest struct {
	Email           string
	Password        string
	DisplayName     string
	AffiliationCode string
}

// FederatedRequest is the input for the external identity provider path.
type FederatedRequest struct {
	Email           string
	Token           string
	DisplayName     string
	AffiliationCode string
}

// RequestMeta carries per-request audit context.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// AuthResult is the outcome of either authentication path.
type AuthResult struct {
	IsNewAccount          bool
	AccountID             string
	Role                  domain.Role
	SessionToken          string
	ExpiresAt             time.Time
	DisplayName           string
	AffiliationDescriptor string
}

// EventPublisher fans drained domain events out to subscribers. Publish must
// never block the caller.
type EventPublisher interface {
	Publish(evts ...domain.Event)
}

// AuthService decides register-vs-login-vs-merge for both authentication
// paths, issues session tokens, and hands drained events to the publisher.
// Persistence is the sole serialization point: concurrent registrations race
// at its unique constraints, and a lost race is resolved by re-running the
// lookup once.
type AuthService struct {
	repo          repository.Repository
	hasher        *security.Hasher
	tokens        *security.TokenProvider
	classifier    domain.Classifier
	verifier      federation.TokenVerifier
	publisher     EventPublisher
	audit         audit.Logger
	verifyTimeout time.Duration
	log           *zap.Logger
}

// NewAuthService returns an AuthService with the given collaborators. The
// verifier may be nil when the federated path is disabled; verifyTimeout
// bounds each external token verification.
func NewAuthService(
	repo repository.Repository,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	classifier domain.Classifier,
	verifier federation.TokenVerifier,
	publisher EventPublisher,
	auditor audit.Logger,
	verifyTimeout time.Duration,
	log *zap.Logger,
) *AuthService {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if verifyTimeout <= 0 {
		verifyTimeout = 5 * time.Second
	}
	return &AuthService{
		repo:          repo,
		hasher:        hasher,
		tokens:        tokens,
		classifier:    classifier,
		verifier:      verifier,
		publisher:     publisher,
		audit:         auditor,
		verifyTimeout: verifyTimeout,
		log:           log,
	}
}

// AuthenticateWithCredential registers a new account or logs into an existing
// one using email + password. A registration attempt on an already-registered
// email behaves as a login with the supplied password.
func (s *AuthService) AuthenticateWithCredential(ctx context.Context, req CredentialRequest, meta RequestMeta) (*AuthResult, error) {
	email, err := domain.NewEmailAddress(req.Email)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email.String())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.credentialLogin(ctx, existing, req.Password, meta)
	}

	res, err := s.registerWithCredential(ctx, req, email, meta)
	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		return res, err
	}

	// Lost a registration race; pick up the winning write and behave as a
	// login against it.
	existing, lookupErr := s.repo.FindByEmail(ctx, email.String())
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing == nil {
		return nil, ErrDuplicateIdentity
	}
	return s.credentialLogin(ctx, existing, req.Password, meta)
}

// AuthenticateWithFederatedToken verifies the external token, then logs in,
// merges onto a same-email local account, or registers, in that order of
// precedence. The external id is the provider-guaranteed anchor; email is
// only a merge key.
func (s *AuthService) AuthenticateWithFederatedToken(ctx context.Context, req FederatedRequest, meta RequestMeta) (*AuthResult, error) {
	email, err := domain.NewEmailAddress(req.Email)
	if err != nil {
		return nil, err
	}

	assertion, err := s.verifyToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	providerEmail, err := domain.NewEmailAddress(assertion.Email)
	if err != nil {
		return nil, federation.ErrInvalidToken
	}
	if providerEmail != email {
		s.audit.LogEvent(ctx, "", audit.ActionLoginFailed, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "token email mismatch")
		return nil, ErrTokenMismatch
	}
	externalID, err := domain.NewExternalID(assertion.ExternalID)
	if err != nil {
		return nil, federation.ErrInvalidToken
	}

	existing, err := s.repo.FindByExternalID(ctx, externalID.String())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.federatedLogin(ctx, existing, meta)
	}

	byEmail, err := s.repo.FindByEmail(ctx, email.String())
	if err != nil {
		return nil, err
	}
	if byEmail != nil {
		return s.merge(ctx, byEmail, externalID, meta)
	}

	res, err := s.registerWithExternalIdentity(ctx, req, email, externalID, meta)
	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		return res, err
	}

	// Lost the race on external id or email; re-run the lookups once.
	existing, lookupErr := s.repo.FindByExternalID(ctx, externalID.String())
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing != nil {
		return s.federatedLogin(ctx, existing, meta)
	}
	byEmail, lookupErr = s.repo.FindByEmail(ctx, email.String())
	if lookupErr != nil {
		return nil, lookupErr
	}
	if byEmail != nil {
		return s.merge(ctx, byEmail, externalID, meta)
	}
	return nil, ErrDuplicateIdentity
}

func (s *AuthService) verifyToken(ctx context.Context, token string) (*federation.Assertion, error) {
	if s.verifier == nil {
		return nil, federation.ErrInvalidToken
	}
	verifyCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()
	return s.verifier.Verify(verifyCtx, token)
}

func (s *AuthService) credentialLogin(ctx context.Context, identity *domain.Identity, password string, meta RequestMeta) (*AuthResult, error) {
	if err := identity.AuthenticateWithCredential(s.hasher, password); err != nil {
		switch {
		case errors.Is(err, domain.ErrDeactivated):
			s.audit.LogEvent(ctx, identity.ID, audit.ActionLoginFailed, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "account deactivated")
			return nil, ErrAccountDeactivated
		case errors.Is(err, domain.ErrCredentialMismatch):
			s.audit.LogEvent(ctx, identity.ID, audit.ActionLoginFailed, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "credential mismatch")
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}
	s.audit.LogEvent(ctx, identity.ID, audit.ActionLogin, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "credential login")
	return s.finish(identity, false)
}

func (s *AuthService) federatedLogin(ctx context.Context, identity *domain.Identity, meta RequestMeta) (*AuthResult, error) {
	if err := identity.AuthenticateWithExternalIdentity(); err != nil {
		if errors.Is(err, domain.ErrDeactivated) {
			s.audit.LogEvent(ctx, identity.ID, audit.ActionLoginFailed, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "account deactivated")
			return nil, ErrAccountDeactivated
		}
		return nil, err
	}
	s.audit.LogEvent(ctx, identity.ID, audit.ActionLogin, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "federated login")
	return s.finish(identity, false)
}

func (s *AuthService) merge(ctx context.Context, identity *domain.Identity, externalID domain.ExternalID, meta RequestMeta) (*AuthResult, error) {
	if err := identity.LinkExternalIdentity(externalID); err != nil {
		switch {
		case errors.Is(err, domain.ErrDeactivated):
			s.audit.LogEvent(ctx, identity.ID, audit.ActionLoginFailed, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "account deactivated")
			return nil, ErrAccountDeactivated
		case errors.Is(err, domain.ErrExternalIDLinked):
			// Same email, different provider identity. The linked external
			// id did not match the lookup, so this token belongs to someone
			// else's provider account.
			s.audit.LogEvent(ctx, identity.ID, audit.ActionLoginFailed, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "external identity already linked")
			return nil, ErrTokenMismatch
		default:
			return nil, err
		}
	}
	if err := identity.AuthenticateWithExternalIdentity(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	s.audit.LogEvent(ctx, identity.ID, audit.ActionMerge, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "linked external identity")
	return s.finish(identity, false)
}

func (s *AuthService) registerWithCredential(ctx context.Context, req CredentialRequest, email domain.EmailAddress, meta RequestMeta) (*AuthResult, error) {
	name, err := domain.NewDisplayName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	code := s.parseAffiliation(req.AffiliationCode)

	identity, err := domain.NewWithCredential(s.hasher, s.classifier, name, email, req.Password, code)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, identity.ID, audit.ActionRegister, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "credential registration")
	return s.finish(identity, true)
}

func (s *AuthService) registerWithExternalIdentity(ctx context.Context, req FederatedRequest, email domain.EmailAddress, externalID domain.ExternalID, meta RequestMeta) (*AuthResult, error) {
	name, err := domain.NewDisplayName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	code := s.parseAffiliation(req.AffiliationCode)

	identity, err := domain.NewWithExternalIdentity(s.hasher, s.classifier, name, email, code, externalID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, identity.ID, audit.ActionRegister, audit.ResourceIdentity, meta.ClientIP, meta.UserAgent, "federated registration")
	return s.finish(identity, true)
}

// parseAffiliation is a soft fallback: an invalid code is logged and treated
// as absent rather than failing the registration.
func (s *AuthService) parseAffiliation(raw string) *domain.AffiliationCode {
	if raw == "" {
		return nil
	}
	code, err := domain.NewAffiliationCode(raw)
	if err != nil {
		s.log.Warn("invalid affiliation code, defaulting to secondary role", zap.String("code", raw), zap.Error(err))
		return nil
	}
	return &code
}

// finish issues the session token and hands the drained events to the
// publisher. Publishing is fire-and-forget; the token is returned regardless
// of what downstream handlers do.
func (s *AuthService) finish(identity *domain.Identity, isNew bool) (*AuthResult, error) {
	var externalIDRef string
	if identity.ExternalIdentityID != nil {
		externalIDRef = identity.ExternalIdentityID.String()
	}
	token, expiresAt, err := s.tokens.IssueSession(identity.ID, identity.Email.String(), string(identity.Role), externalIDRef)
	if err != nil {
		return nil, err
	}

	if evts := identity.DrainEvents(); len(evts) > 0 && s.publisher != nil {
		s.publisher.Publish(evts...)
	}

	return &AuthResult{
		IsNewAccount:          isNew,
		AccountID:             identity.ID,
		Role:                  identity.Role,
		SessionToken:          token,
		ExpiresAt:             expiresAt,
		DisplayName:           identity.DisplayName.String(),
		AffiliationDescriptor: identity.AffiliationDescriptor,
	}, nil
}
