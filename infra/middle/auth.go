package middle

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/mstgnz/signpay/infra/auth"
	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/response"
)

type claimsKey struct{}

// AuthMiddleware protects back office routes. The bearer token must be the
// API_KEY or, when tokens is not nil, a back office token it issued. Pass a
// nil tokens to accept the API key only.
func AuthMiddleware(tokens *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := config.GetEnv("API_KEY", "")
			if apiKey == "" && tokens == nil {
				response.Error(w, http.StatusInternalServerError, "API key not configured", nil)
				return
			}

			bearer, problem := bearerToken(r)
			if problem != "" {
				response.Error(w, http.StatusUnauthorized, problem, nil)
				return
			}

			if apiKey != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(apiKey)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			if tokens == nil {
				response.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
				return
			}

			claims, err := tokens.ValidateToken(bearer)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
			case errors.Is(err, auth.ErrExpiredToken):
				response.Error(w, http.StatusUnauthorized, "Token has expired", nil)
			default:
				response.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
			}
		})
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header, or a
// message explaining what is wrong with the header
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Authorization header required"
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", "Invalid authorization format. Use: Bearer <api_key>"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "API key required"
	}
	return token, ""
}

// RequireScope rejects back office tokens that do not grant scope. Requests
// authenticated with the API key carry no claims and are let through.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := GetClaims(r.Context()); claims != nil && !claims.HasScope(scope) {
				response.Error(w, http.StatusForbidden, "Token does not grant "+scope, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims returns the back office token claims of an authenticated request,
// nil when the request used the API key
func GetClaims(ctx context.Context) *auth.JWTClaims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.JWTClaims)
	return claims
}
