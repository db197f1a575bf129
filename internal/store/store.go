package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

// Listener is notified with a private copy of a cart after every applied
// change to it. Listeners run under the store lock and must not call back
// into the Store synchronously; spawn a goroutine for anything heavy.
type Listener func(cart *domain.Cart)

// Store coordinates access to per-user cart snapshots. All writes go through
// Apply or Replace, which serialize against each other, bump the cart
// revision and fan the new snapshot out to subscribers. Readers get copies
// and can never observe a half-applied mutation.
type Store struct {
	repo SnapshotRepository

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New creates a store backed by the given repository.
func New(repo SnapshotRepository) *Store {
	return &Store{
		repo:      repo,
		listeners: make(map[int]Listener),
	}
}

// Get returns the current snapshot for userID. A user without a snapshot
// gets an empty cart at revision zero rather than an error.
func (s *Store) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(userID), nil
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	return cart, nil
}

// Apply runs mutate against the current snapshot for userID, persists the
// result with a bumped revision and notifies subscribers. If mutate returns
// an error the snapshot is left untouched.
func (s *Store) Apply(ctx context.Context, userID string, mutate func(*domain.Cart) error) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := mutate(cart); err != nil {
		return nil, err
	}
	cart.Revision++

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart snapshot: %w", err)
	}

	s.notifyLocked(cart)
	return cart.Clone(), nil
}

// Replace swaps the whole snapshot for a freshly fetched authoritative line
// set, keeping the revision monotonic.
func (s *Store) Replace(ctx context.Context, userID string, lines []domain.CartLine) (*domain.Cart, error) {
	return s.Apply(ctx, userID, func(cart *domain.Cart) error {
		cart.ReplaceLines(lines)
		return nil
	})
}

// Subscribe registers a listener for snapshot changes. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// notifyLocked hands each listener its own copy. Callers must hold s.mu.
func (s *Store) notifyLocked(cart *domain.Cart) {
	for _, fn := range s.listeners {
		fn(cart.Clone())
	}
}
