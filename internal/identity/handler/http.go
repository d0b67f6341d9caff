// Package handler exposes the authentication service over HTTP/JSON.
package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"identity-plane/internal/federation"
	"identity-plane/internal/identity/domain"
	"identity-plane/internal/identity/service"
)

// AuthHandler serves the two authentication endpoints. New accounts answer
// 201, existing accounts 200; failures map onto 400/401/403/409/500.
type AuthHandler struct {
	svc *service.AuthService
	log *zap.Logger
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(svc *service.AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{svc: svc, log: log}
}

// Register mounts the auth routes on mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/credential", h.Credential)
	mux.HandleFunc("POST /v1/auth/federated", h.Federated)
}

type credentialRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	DisplayName     string `json:"display_name"`
	AffiliationCode string `json:"affiliation_code"`
}

type federatedRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	DisplayName     string `json:"display_name"`
	AffiliationCode string `json:"affiliation_code"`
}

type authResponse struct {
	IsNewAccount          bool   `json:"is_new_account"`
	AccountID             string `json:"account_id"`
	Role                  string `json:"role"`
	SessionToken          string `json:"session_token"`
	ExpiresAt             string `json:"expires_at"`
	DisplayName           string `json:"display_name"`
	AffiliationDescriptor string `json:"affiliation_descriptor,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Credential handles register-or-login with email + password.
func (h *AuthHandler) Credential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.AuthenticateWithCredential(r.Context(), service.CredentialRequest{
		Email:           req.Email,
		Password:        req.Password,
		DisplayName:     req.DisplayName,
		AffiliationCode: req.AffiliationCode,
	}, requestMeta(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeResult(w, res)
}

// Federated handles register-login-or-merge with an external provider token.
func (h *AuthHandler) Federated(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.AuthenticateWithFederatedToken(r.Context(), service.FederatedRequest{
		Email:           req.Email,
		Token:           req.Token,
		DisplayName:     req.DisplayName,
		AffiliationCode: req.AffiliationCode,
	}, requestMeta(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeResult(w, res)
}

func (h *AuthHandler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrTokenMismatch):
		writeError(w, http.StatusUnauthorized, "token does not match the supplied email")
	case errors.Is(err, federation.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "expired token")
	case errors.Is(err, federation.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, service.ErrAccountDeactivated):
		writeError(w, http.StatusForbidden, "account deactivated")
	case errors.Is(err, service.ErrDuplicateIdentity):
		writeError(w, http.StatusConflict, "duplicate identity")
	default:
		h.log.Error("authentication failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeResult(w http.ResponseWriter, res *service.AuthResult) {
	code := http.StatusOK
	if res.IsNewAccount {
		code = http.StatusCreated
	}
	writeJSON(w, code, authResponse{
		IsNewAccount:          res.IsNewAccount,
		AccountID:             res.AccountID,
		Role:                  string(res.Role),
		SessionToken:          res.SessionToken,
		ExpiresAt:             res.ExpiresAt.UTC().Format(time.RFC3339),
		DisplayName:           res.DisplayName,
		AffiliationDescriptor: res.AffiliationDescriptor,
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// requestMeta extracts the audit context. The first X-Forwarded-For hop wins
// when present; RemoteAddr is the fallback.
func requestMeta(r *http.Request) service.RequestMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return service.RequestMeta{ClientIP: ip, UserAgent: r.UserAgent()}
}
