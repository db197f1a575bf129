// Package cartsync keeps the local cart snapshot in step with the upstream
// cart service. Every mutation is confirmed remotely before it is applied
// locally, so the snapshot never shows state the server refused.
package cartsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/internal/store"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

// CartAPI is the slice of the upstream cart client the synchronizer needs.
type CartAPI interface {
	FetchCart(ctx context.Context, userID string) ([]domain.CartLine, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	SetItemQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
}

// Synchronizer owns the call-then-apply cycle for cart mutations. Mutations
// on the same product are applied in issuance order; mutations on different
// products run concurrently.
type Synchronizer struct {
	api    CartAPI
	store  *store.Store
	queue  *keyQueue
	logger *slog.Logger
}

// New creates a synchronizer on top of the given upstream client and store.
func New(api CartAPI, st *store.Store, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		api:    api,
		store:  st,
		queue:  newKeyQueue(),
		logger: log,
	}
}

// Refresh replaces the local snapshot with the authoritative server cart.
// On failure the current snapshot is kept and the error is surfaced, never
// swallowed into a silently empty cart.
func (s *Synchronizer) Refresh(ctx context.Context, userID string) (*domain.Cart, error) {
	lines, err := s.api.FetchCart(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(logger.WithUserID(ctx, userID), "cart refresh failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("refresh cart: %w", err)
	}

	cart, err := s.store.Replace(ctx, userID, lines)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(logger.WithUserID(ctx, userID), "cart refreshed",
		slog.Int("lines", len(cart.Lines)),
		slog.Int64("revision", cart.Revision),
	)
	return cart, nil
}

// Snapshot returns the current local snapshot without touching the network.
func (s *Synchronizer) Snapshot(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.store.Get(ctx, userID)
}

// AddLine adds line.Quantity units of a product to the cart. The server
// confirms first; only then is the snapshot updated, merging quantities if
// the product is already present.
func (s *Synchronizer) AddLine(ctx context.Context, userID string, line domain.CartLine) (*domain.Cart, error) {
	if line.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if line.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	var cart *domain.Cart
	err := s.queue.Do(ctx, userID+"/"+line.ProductID, func() error {
		if err := s.api.AddItem(ctx, userID, line.ProductID, line.Quantity); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var applyErr error
		cart, applyErr = s.store.Apply(ctx, userID, func(c *domain.Cart) error {
			return c.MergeLine(line)
		})
		return applyErr
	})
	if err != nil {
		return nil, fmt.Errorf("add cart line: %w", err)
	}

	return cart, nil
}

// SetQuantity replaces the quantity of an existing line. Quantities below 1
// are rejected before any network traffic; removal is its own operation.
func (s *Synchronizer) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	var cart *domain.Cart
	err := s.queue.Do(ctx, userID+"/"+productID, func() error {
		// The existence check runs inside the queue so a queued removal of
		// the same product cannot slip between the check and the update.
		snapshot, err := s.store.Get(ctx, userID)
		if err != nil {
			return err
		}
		if _, ok := snapshot.Line(productID); !ok {
			return apperrors.NotFound("cart line", productID)
		}

		if err := s.api.SetItemQuantity(ctx, userID, productID, quantity); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var applyErr error
		cart, applyErr = s.store.Apply(ctx, userID, func(c *domain.Cart) error {
			return c.SetQuantity(productID, quantity)
		})
		return applyErr
	})
	if err != nil {
		return nil, fmt.Errorf("set cart quantity: %w", err)
	}

	return cart, nil
}

// RemoveLine removes a product from the cart. The upstream treats a missing
// item as already removed, and so does the local apply step.
func (s *Synchronizer) RemoveLine(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	var cart *domain.Cart
	err := s.queue.Do(ctx, userID+"/"+productID, func() error {
		if err := s.api.RemoveItem(ctx, userID, productID); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var applyErr error
		cart, applyErr = s.store.Apply(ctx, userID, func(c *domain.Cart) error {
			c.RemoveLine(productID)
			return nil
		})
		return applyErr
	})
	if err != nil {
		return nil, fmt.Errorf("remove cart line: %w", err)
	}

	return cart, nil
}
