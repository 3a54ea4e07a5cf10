package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/ecommerce-api/internal/core/domain"
	"github.com/storefront/ecommerce-api/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	repo     ports.AuthRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	limiter  ports.LoginLimiter
	recorder ports.AuthEventRecorder
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithLoginLimiter enables throttling of failed logins.
func WithLoginLimiter(l ports.LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithEventRecorder sends every registration and login outcome to r.
func WithEventRecorder(r ports.AuthEventRecorder) AuthOption {
	return func(s *AuthService) { s.recorder = r }
}

// WithClock overrides the time source used for token issuance.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(repo ports.AuthRepository, hasher ports.PasswordHasher, tokens ports.TokenService, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		limiter:  noopLimiter{},
		recorder: noopRecorder{},
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleCustomer,
		CreatedAt:    s.now().UTC(),
	}

	// The store's unique index decides conflicts; no existence pre-check.
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.record(ctx, email, domain.AuthEventRegistered)
	s.log.Info().Str("email", email).Msg("user registered")
	return created, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredentials after the same amount of
// hashing work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
	} else if !allowed {
		s.record(ctx, email, domain.AuthEventLoginThrottled)
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("login: %w", err)
	}

	target := s.dummy()
	if user != nil {
		target = user.PasswordHash
	}
	match := s.hasher.Verify(password, target)

	if user == nil || !match {
		s.fail(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	token, err := s.tokens.Issue(user.Email, domain.TokenClaims{
		Role:     user.Role,
		FullName: user.FullName,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login limiter")
	}
	s.record(ctx, email, domain.AuthEventLoginSucceeded)

	res := &ports.LoginResult{
		Token: token,
		Email: user.Email,
		Role:  user.Role,
	}
	if claims, ok := s.tokens.Validate(token, now); ok {
		res.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return res, nil
}

// EnsureAdmin creates an ADMIN account for email unless one already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	_, err = s.repo.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, domain.ErrEmailInUse) {
		// Another instance seeded it first.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	s.log.Info().Str("email", email).Msg("seeded default admin user")
	return true, nil
}

func (s *AuthService) fail(ctx context.Context, email string) {
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to count login failure")
	}
	s.record(ctx, email, domain.AuthEventLoginFailed)
}

func (s *AuthService) record(ctx context.Context, email string, kind domain.AuthEventKind) {
	s.recorder.Record(domain.AuthEvent{
		Email:      email,
		Kind:       kind,
		RemoteIP:   ports.RemoteIP(ctx),
		OccurredAt: s.now().UTC(),
	})
}

// dummy returns a hash of the hasher's configured cost that no password
// matches, used to equalise login timing for unknown emails.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("storefront-unknown-user-placeholder")
		if err != nil {
			s.log.Error().Err(err).Msg("failed to compute dummy password hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (noopLimiter) Fail(context.Context, string) error          { return nil }
func (noopLimiter) Reset(context.Context, string) error         { return nil }

type noopRecorder struct{}

func (noopRecorder) Record(domain.AuthEvent) {}
