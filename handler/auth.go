package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/signpay/infra/auth"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/response"
)

// AuthHandler mints the short lived tokens the back office uses to read
// checkout events without holding the API key
type AuthHandler struct {
	tokens   *auth.JWTService
	validate *validator.Validate
}

func NewAuthHandler(tokens *auth.JWTService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{tokens: tokens, validate: validate}
}

// TokenRequest names the back office user a token is minted for
type TokenRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
}

type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse is returned by both token endpoints
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Scope     string    `json:"scope"`
}

// bind decodes and validates the body into v, answering 400 itself when
// either step fails
func (h *AuthHandler) bind(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := response.DecodeJSON(w, r, v); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", nil)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return false
	}
	return true
}

// IssueToken handles POST /auth/token. Only API key holders reach it.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !h.bind(w, r, &req) {
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(req.Username)
	if err != nil {
		logger.Error("Failed to mint back office token", err)
		response.Error(w, http.StatusInternalServerError, "Could not issue a token", nil)
		return
	}

	logger.Info("Back office token issued", logger.LogContext{
		Fields: map[string]any{"username": req.Username, "expires_at": expiresAt},
	})
	response.Success(w, http.StatusOK, "Token issued", TokenResponse{Token: token, ExpiresAt: expiresAt, Scope: auth.ScopeEvents})
}

// RefreshToken handles POST /auth/refresh. A still valid token is exchanged
// for a fresh one with the same subject and scope.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !h.bind(w, r, &req) {
		return
	}

	token, expiresAt, err := h.tokens.RefreshToken(req.Token)
	switch {
	case err == nil:
		response.Success(w, http.StatusOK, "Token refreshed", TokenResponse{Token: token, ExpiresAt: expiresAt, Scope: auth.ScopeEvents})
	case errors.Is(err, auth.ErrExpiredToken):
		response.Error(w, http.StatusUnauthorized, "Token has expired", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingSubject):
		response.Error(w, http.StatusUnauthorized, "Invalid token", nil)
	default:
		logger.Error("Failed to refresh back office token", err)
		response.Error(w, http.StatusInternalServerError, "Could not refresh the token", nil)
	}
}
