package federation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPVerifier verifies tokens against the provider's token-info endpoint.
// A timed-out or failed verification fails the whole request; the caller
// never proceeds on an unverified token.
type HTTPVerifier struct {
	client *resty.Client
	log    *zap.Logger
}

// NewHTTPVerifier returns a verifier for the token-info endpoint at baseURL.
// timeout bounds every verification call.
func NewHTTPVerifier(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &HTTPVerifier{client: client, log: log}
}

type tokenInfoRequest struct {
	Token string `json:"token"`
}

type tokenInfoResponse struct {
	ExternalID    string `json:"external_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Error         string `json:"error,omitempty"`
}

// Verify implements TokenVerifier.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Assertion, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var out tokenInfoResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(tokenInfoRequest{Token: token}).
		SetResult(&out).
		SetError(&out).
		Post("/tokeninfo")
	if err != nil {
		return nil, fmt.Errorf("federation: verify: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusOK:
		if out.ExternalID == "" || out.Email == "" {
			return nil, ErrInvalidToken
		}
		return &Assertion{
			ExternalID:    out.ExternalID,
			Email:         out.Email,
			EmailVerified: out.EmailVerified,
		}, nil
	case resp.StatusCode() == http.StatusUnauthorized && out.Error == "expired_token":
		return nil, ErrExpiredToken
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusBadRequest:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("federation: verify: provider status %d", resp.StatusCode())
	}
}
