// Package auth issues and validates the bearer JWTs that guard the admin
// control plane (internal/controlapi), grounded on the teacher's
// internal/controlplane/api/auth JWT service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cloudvault/vaultd/internal/store/identity"
)

var (
	ErrInvalidToken        = errors.New("controlapi: invalid token")
	ErrExpiredToken        = errors.New("controlapi: token has expired")
	ErrInvalidSecretLength = errors.New("controlapi: JWT secret must be at least 32 characters")
)

// Claims identifies the admin-API caller. Unlike the wire protocol's
// session auth, the control plane only ever authenticates admins, so
// there is no separate access/refresh token distinction.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c *Claims) IsAdmin() bool { return c.Role == string(identity.RoleAdmin) }

// Service signs and verifies Claims with an HMAC secret.
type Service struct {
	secret string
	ttl    time.Duration
	issuer string
}

// NewService builds a Service. secret must be at least 32 bytes, matching
// the teacher's minimum JWT secret length.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Service{secret: secret, ttl: ttl, issuer: "vaultd-controlapi"}, nil
}

// Issue mints a signed token for u.
func (s *Service) Issue(u identity.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies tokenString, returning its Claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
