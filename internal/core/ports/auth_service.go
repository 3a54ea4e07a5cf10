package ports

import (
	"context"
	"time"

	"github.com/storefront/ecommerce-api/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	Email     string
	Role      domain.Role
	ExpiresAt time.Time
}

type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports false for a mismatch and for a malformed hash.
	Verify(password, hash string) bool
}

// TokenService issues and validates signed bearer tokens.
type TokenService interface {
	Issue(subject string, claims domain.TokenClaims, now time.Time) (string, error)
	Validate(token string, now time.Time) (domain.TokenClaims, bool)
}

// LoginLimiter throttles repeated failed logins for the same email.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// AuthEventRecorder accepts audit events without blocking the caller.
type AuthEventRecorder interface {
	Record(event domain.AuthEvent)
}
