package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storefront/ecommerce-api/internal/core/domain"
)

const (
	// PlaceholderSigningKey is the documented development key. Config
	// validation refuses it in production.
	PlaceholderSigningKey = "this-is-a-long-demo-secret-key-for-jwt-256-bit-demo-123456"

	// MinSigningKeyLen is the minimum HS256 key length in bytes.
	MinSigningKeyLen = 32

	DefaultTokenTTL = 24 * time.Hour
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

// TokenService issues and validates HS256 bearer tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenService struct {
	key      []byte
	lifetime time.Duration
}

func NewTokenService(signingKey string, lifetime time.Duration) (*TokenService, error) {
	if len(signingKey) < MinSigningKeyLen {
		return nil, fmt.Errorf("token service: %w: need at least %d bytes", domain.ErrWeakSigningKey, MinSigningKeyLen)
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenTTL
	}
	return &TokenService{key: []byte(signingKey), lifetime: lifetime}, nil
}

// Lifetime is the validity window applied to issued tokens.
func (s *TokenService) Lifetime() time.Duration { return s.lifetime }

// Issue signs a token for subject that expires at now + lifetime.
func (s *TokenService) Issue(subject string, claims domain.TokenClaims, now time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		Role:     string(claims.Role),
		FullName: claims.FullName,
	})

	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature and expiry of token as of now. The bool is
// false for forged, tampered, expired and malformed tokens alike.
func (s *TokenService) Validate(token string, now time.Time) (domain.TokenClaims, bool) {
	var c tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil || !parsed.Valid {
		return domain.TokenClaims{}, false
	}

	role, err := domain.ParseRole(c.Role)
	if err != nil || c.Subject == "" {
		return domain.TokenClaims{}, false
	}

	out := domain.TokenClaims{
		Subject:   c.Subject,
		Role:      role,
		FullName:  c.FullName,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, true
}

// Subject extracts the token subject (the user's email).
func (s *TokenService) Subject(token string, now time.Time) (string, bool) {
	c, ok := s.Validate(token, now)
	return c.Subject, ok
}

// Role extracts the role claim.
func (s *TokenService) Role(token string, now time.Time) (domain.Role, bool) {
	c, ok := s.Validate(token, now)
	return c.Role, ok
}
