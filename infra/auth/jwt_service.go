// Package auth issues and validates the bearer tokens of back office users
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mstgnz/signpay/infra/config"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrInvalidClaims  = errors.New("invalid token claims")
	ErrMissingSubject = errors.New("subject missing in token")
)

// ScopeEvents grants read access to the checkout event history
const ScopeEvents = "events:read"

const (
	issuer = "signpay"
	// leeway absorbs clock drift between the instances behind the load balancer
	leeway = 30 * time.Second
)

// JWTClaims are the claims of a back office token. Scope is a space
// separated list as in OAuth 2.0.
type JWTClaims struct {
	Username string `json:"username"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope
func (c *JWTClaims) HasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope)
}

// JWTService handles JWT token operations
type JWTService struct {
	secretKey []byte
	expiry    time.Duration
}

// NewJWTService creates a JWT service signing with the application secret.
// Tokens expire after JWT_EXPIRY_HOURS (default 12).
func NewJWTService() *JWTService {
	return NewJWTServiceWithSecret(config.App().SecretKey, time.Duration(config.GetIntEnv("JWT_EXPIRY_HOURS", 12))*time.Hour)
}

// NewJWTServiceWithSecret creates a JWT service with an explicit secret and expiry
func NewJWTServiceWithSecret(secret string, expiry time.Duration) *JWTService {
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &JWTService{
		secretKey: []byte(secret),
		expiry:    expiry,
	}
}

// GenerateToken issues a token granting read access to checkout events
func (s *JWTService) GenerateToken(username string) (string, time.Time, error) {
	return s.issue(username, ScopeEvents)
}

func (s *JWTService) issue(username, scope string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		Username: username,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, issuer and expiry and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (any, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// RefreshToken exchanges a still valid token for a new one with the same
// subject and scope
func (s *JWTService) RefreshToken(tokenString string) (string, time.Time, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.issue(claims.Subject, claims.Scope)
}
