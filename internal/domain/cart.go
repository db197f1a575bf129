package domain

import (
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

// CartLine is a single product entry in a user's cart. DisplayPrice is the
// unit price in minor currency units as last seen from the catalog; it is
// presentation data only and never feeds a billed amount.
type CartLine struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	DisplayPrice int64  `json:"display_price"`
	Quantity     int    `json:"quantity"`
	Slug         string `json:"slug"`
	ImageURL     string `json:"image_url"`
}

// Cart is the local snapshot of a user's server-side cart. Lines hold at most
// one entry per product ID. Revision increases by one on every applied
// mutation or refresh, so consumers can tell stale derived data apart from
// current data.
type Cart struct {
	UserID   string     `json:"user_id"`
	Lines    []CartLine `json:"lines"`
	Revision int64      `json:"revision"`
}

// NewCart creates an empty cart snapshot for the given user.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Lines:  []CartLine{},
	}
}

// findLine returns the index of the line for productID, or -1.
func (c *Cart) findLine(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID, if present.
func (c *Cart) Line(productID string) (CartLine, bool) {
	if i := c.findLine(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

// MergeLine adds the given line to the cart. If a line for the same product
// already exists, the quantities are summed and the descriptive fields are
// refreshed from the incoming line; otherwise the line is appended.
func (c *Cart) MergeLine(line CartLine) error {
	if line.ProductID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if line.Quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}

	if i := c.findLine(line.ProductID); i >= 0 {
		qty := c.Lines[i].Quantity + line.Quantity
		c.Lines[i] = line
		c.Lines[i].Quantity = qty
		return nil
	}

	c.Lines = append(c.Lines, line)
	return nil
}

// SetQuantity replaces the quantity of an existing line. Quantities below 1
// are rejected; removal is a separate operation.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}

	i := c.findLine(productID)
	if i < 0 {
		return apperrors.NotFound("cart line", productID)
	}

	c.Lines[i].Quantity = quantity
	return nil
}

// RemoveLine deletes the line for productID. Removing a line that is not
// present is a no-op: the desired end state is already reached.
func (c *Cart) RemoveLine(productID string) {
	i := c.findLine(productID)
	if i < 0 {
		return
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// ReplaceLines swaps the full line set for a freshly fetched authoritative
// one, preserving the cart identity.
func (c *Cart) ReplaceLines(lines []CartLine) {
	if lines == nil {
		lines = []CartLine{}
	}
	c.Lines = lines
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (c *Cart) Clone() *Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return &Cart{
		UserID:   c.UserID,
		Lines:    lines,
		Revision: c.Revision,
	}
}

// TotalStatus describes the lifecycle of a server-computed cart total.
type TotalStatus string

const (
	// TotalPending means a recomputation is in flight and no trustworthy
	// amount is available yet.
	TotalPending TotalStatus = "pending"
	// TotalCurrent means Amount reflects the cart revision it was computed
	// against.
	TotalCurrent TotalStatus = "current"
	// TotalFailed means the last recomputation failed; Amount is zero and
	// must not be billed or displayed as a price.
	TotalFailed TotalStatus = "failed"
)

// TotalState is the authoritative cart total as computed by the pricing
// endpoint, tagged with the cart revision it belongs to.
type TotalState struct {
	Status   TotalStatus `json:"status"`
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
	Revision int64       `json:"revision"`
}
