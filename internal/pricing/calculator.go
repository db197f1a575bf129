// Package pricing derives trusted cart totals. Amounts always come from the
// cart service pricing endpoint, never from the display prices cached in the
// snapshot.
package pricing

import (
	"context"
	"fmt"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
)

// Quoter prices a set of cart lines server-side.
type Quoter interface {
	QuoteTotal(ctx context.Context, userID string, lines []domain.CartLine) (int64, error)
}

// Calculator computes the authoritative total for a cart.
type Calculator struct {
	quoter   Quoter
	currency string
}

// NewCalculator creates a calculator quoting in the given currency.
func NewCalculator(quoter Quoter, currency string) *Calculator {
	return &Calculator{
		quoter:   quoter,
		currency: currency,
	}
}

// Currency returns the currency totals are quoted in.
func (c *Calculator) Currency() string {
	return c.currency
}

// ComputeTotal returns the server-priced total for the cart lines in minor
// units. An empty cart is zero without any network traffic.
func (c *Calculator) ComputeTotal(ctx context.Context, userID string, lines []domain.CartLine) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	total, err := c.quoter.QuoteTotal(ctx, userID, lines)
	if err != nil {
		return 0, fmt.Errorf("compute cart total: %w", err)
	}
	return total, nil
}
