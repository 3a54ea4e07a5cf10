package ports

import (
	"context"

	"github.com/storefront/ecommerce-api/internal/core/domain"
)

// AuthRepository is the credential store: the system of record for users.
//
// Create must enforce email uniqueness atomically (unique index or
// constraint) and report a conflict as domain.ErrEmailInUse.
type AuthRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindByEmail returns domain.ErrUserNotFound when no record matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
