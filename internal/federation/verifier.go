// Package federation verifies tokens issued by the external identity
// provider. The verifier is constructed once at the composition root and
// injected; there is no process-wide singleton.
package federation

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when the provider rejects the token.
	ErrInvalidToken = errors.New("federated token is invalid")
	// ErrExpiredToken is returned when the provider reports the token expired.
	ErrExpiredToken = errors.New("federated token has expired")
)

// Assertion is the provider-verified identity carried by a federated token.
type Assertion struct {
	ExternalID    string
	Email         string
	EmailVerified bool
}

// TokenVerifier checks a federated token with the provider and returns the
// asserted identity. Implementations must bound the call via ctx.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Assertion, error)
}
