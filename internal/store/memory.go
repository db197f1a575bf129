package store

import (
	"context"
	"sync"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

// MemorySnapshotRepository is an in-process SnapshotRepository used in tests
// and single-instance development setups.
type MemorySnapshotRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

// NewMemorySnapshotRepository creates an empty in-memory repository.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{
		carts: make(map[string]*domain.Cart),
	}
}

// Get retrieves a snapshot by user ID.
func (r *MemorySnapshotRepository) Get(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart snapshot", userID)
	}
	return cart.Clone(), nil
}

// Save persists a snapshot.
func (r *MemorySnapshotRepository) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.UserID] = cart.Clone()
	return nil
}

// Delete removes a user's snapshot.
func (r *MemorySnapshotRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}
