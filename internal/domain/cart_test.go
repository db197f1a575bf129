package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

func TestCart_MergeLine(t *testing.T) {
	cart := NewCart("user-1")

	err := cart.MergeLine(CartLine{ProductID: "p1", Name: "Mug", DisplayPrice: 2500, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	// Merging the same product sums quantities instead of duplicating lines.
	err = cart.MergeLine(CartLine{ProductID: "p1", Name: "Mug", DisplayPrice: 2600, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, int64(2600), cart.Lines[0].DisplayPrice)

	err = cart.MergeLine(CartLine{ProductID: "p2", Name: "Shirt", Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
}

func TestCart_MergeLine_Invalid(t *testing.T) {
	cart := NewCart("user-1")

	err := cart.MergeLine(CartLine{ProductID: "", Quantity: 1})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	err = cart.MergeLine(CartLine{ProductID: "p1", Quantity: 0})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCart_SetQuantity(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.MergeLine(CartLine{ProductID: "p1", Quantity: 2}))

	require.NoError(t, cart.SetQuantity("p1", 7))
	line, ok := cart.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 7, line.Quantity)

	err := cart.SetQuantity("p1", 0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	err = cart.SetQuantity("missing", 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCart_RemoveLine(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.MergeLine(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, cart.MergeLine(CartLine{ProductID: "p2", Quantity: 1}))

	cart.RemoveLine("p1")
	assert.Len(t, cart.Lines, 1)

	// Removing an absent line is a no-op.
	cart.RemoveLine("p1")
	assert.Len(t, cart.Lines, 1)
}

func TestCart_Clone(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.MergeLine(CartLine{ProductID: "p1", Quantity: 1}))
	cart.Revision = 4

	clone := cart.Clone()
	clone.Lines[0].Quantity = 99
	clone.Revision = 5

	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Equal(t, int64(4), cart.Revision)
}

func TestCart_ItemCount(t *testing.T) {
	cart := NewCart("user-1")
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0, cart.ItemCount())

	require.NoError(t, cart.MergeLine(CartLine{ProductID: "p1", Quantity: 2}))
	require.NoError(t, cart.MergeLine(CartLine{ProductID: "p2", Quantity: 3}))
	assert.Equal(t, 5, cart.ItemCount())
}
