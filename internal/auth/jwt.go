// Package auth issues and validates the bearer tokens that carry a
// principal's roles and attributes. Identity itself is established
// elsewhere.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	clock     clockwork.Clock
}

// NewTokenManager creates a token manager. A nil clock means the real clock.
// secret must be at least 32 characters for HS256 security.
func NewTokenManager(secret, issuer string, accessTTL time.Duration, clock clockwork.Clock) *TokenManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenManager{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		clock:     clock,
	}
}

// accessClaims extends standard JWT claims with roles and attributes.
type accessClaims struct {
	jwt.RegisteredClaims
	Email      string                `json:"email,omitempty"`
	Roles      []domain.Role         `json:"roles"`
	Attributes domain.UserAttributes `json:"attrs"`
}

// Issue creates a signed token for user with the user ID as subject.
func (m *TokenManager) Issue(user domain.UserContext) (string, error) {
	if user.ID == uuid.Nil {
		return "", fmt.Errorf("issue token: %w", domain.NewValidationError("id", "required"))
	}
	for _, r := range user.Roles {
		if !r.IsValid() {
			return "", fmt.Errorf("issue token: %w", domain.NewValidationError("roles", "unknown role "+string(r)))
		}
	}

	now := m.clock.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email:      user.Email,
		Roles:      user.Roles,
		Attributes: user.Attributes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a token and returns the principal it
// carries. Every failure wraps domain.ErrUnauthorized.
func (m *TokenManager) ValidateToken(_ context.Context, tokenString string) (domain.UserContext, error) {
	if tokenString == "" {
		return domain.UserContext{}, fmt.Errorf("token is empty: %w", domain.ErrUnauthorized)
	}

	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.UserContext{}, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
		}
		return domain.UserContext{}, fmt.Errorf("parse token: %v: %w", err, domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return domain.UserContext{}, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.UserContext{}, fmt.Errorf("invalid subject UUID: %w", domain.ErrUnauthorized)
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		if r.IsValid() {
			roles = append(roles, r)
		}
	}

	return domain.UserContext{
		ID:         userID,
		Email:      claims.Email,
		Roles:      roles,
		Attributes: claims.Attributes,
	}, nil
}

// Subject returns the subject of tokenString without verifying it. Clients
// use it to attribute their own audit entries; the server still verifies
// every token it receives.
func Subject(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject UUID: %w", err)
	}
	return id, nil
}
