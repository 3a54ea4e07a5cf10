package postgres

import (
	"context"
	"fmt"

	"github.com/storefront/ecommerce-api/internal/core/domain"
	"github.com/storefront/ecommerce-api/internal/core/ports"
)

var _ ports.AuthEventRepository = (*AuthEventRepository)(nil)

// AuthEventRepository appends to the auth_events table.
type AuthEventRepository struct {
	pool poolIface
}

func NewAuthEventRepository(pool poolIface) *AuthEventRepository {
	return &AuthEventRepository{pool: pool}
}

func (r *AuthEventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_events (email, kind, remote_ip, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, event.Email, string(event.Kind), event.RemoteIP, event.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
