package store

import (
	"context"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
)

// SnapshotRepository persists per-user cart snapshots between requests.
type SnapshotRepository interface {
	// Get retrieves a snapshot by user ID. Returns ErrNotFound when the
	// user has no snapshot yet.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists a snapshot, overwriting any existing one for the user.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes a user's snapshot.
	Delete(ctx context.Context, userID string) error
}
