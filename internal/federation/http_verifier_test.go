package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestVerifier(t *testing.T, handler http.HandlerFunc) *HTTPVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPVerifier(srv.URL, 2*time.Second, zap.NewNop())
}

func TestHTTPVerifier_Verify(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		var req tokenInfoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "good-token", req.Token)
		json.NewEncoder(w).Encode(tokenInfoResponse{
			ExternalID:    "prov|42",
			Email:         "alice@example.com",
			EmailVerified: true,
		})
	})

	a, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "prov|42", a.ExternalID)
	assert.Equal(t, "alice@example.com", a.Email)
	assert.True(t, a.EmailVerified)
}

func TestHTTPVerifier_InvalidToken(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(tokenInfoResponse{Error: "invalid_token"})
	})
	_, err := v.Verify(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPVerifier_ExpiredToken(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(tokenInfoResponse{Error: "expired_token"})
	})
	_, err := v.Verify(context.Background(), "old-token")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestHTTPVerifier_EmptyToken(t *testing.T) {
	v := NewHTTPVerifier("http://unused.invalid", time.Second, zap.NewNop())
	_, err := v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPVerifier_IncompleteAssertionRejected(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenInfoResponse{Email: "no-id@example.com"})
	})
	_, err := v.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPVerifier_TimeoutFailsVerification(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(tokenInfoResponse{ExternalID: "x", Email: "y@z.com"})
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := v.Verify(ctx, "slow-token")
	assert.Error(t, err)
}
