// Package auth issues and validates the JWTs that protect the API.
//
// Tokens are HS256-signed bearer tokens carrying the subject and a role
// claim. Service credentials are checked against configuration; there is
// no user database behind this layer.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleSecurityEngineer is the role granted to authenticated service users.
const RoleSecurityEngineer = "security_engineer"

// ErrInvalidCredentials is returned when username/password don't match
// the configured service credentials.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims are the JWT claims carried by issued tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and validates tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	username string
	password string
	now      func() time.Time
}

// NewManager creates a token manager. username/password are the service
// console credentials accepted by Authenticate.
func NewManager(secret string, ttl time.Duration, username, password string) *Manager {
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		username: username,
		password: password,
		now:      time.Now,
	}
}

// Authenticate checks service credentials and returns a signed token on
// success.
func (m *Manager) Authenticate(username, password string) (string, error) {
	if username != m.username || password != m.password {
		return "", ErrInvalidCredentials
	}
	return m.GenerateToken(username)
}

// GenerateToken issues a token for the given subject with the
// security-engineer role.
func (m *Manager) GenerateToken(subject string) (string, error) {
	now := m.now()
	claims := Claims{
		Role: RoleSecurityEngineer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
