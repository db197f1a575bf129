package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

func TestStore_Get_Empty(t *testing.T) {
	s := New(NewMemorySnapshotRepository())

	cart, err := s.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, int64(0), cart.Revision)
}

func TestStore_Apply_BumpsRevision(t *testing.T) {
	s := New(NewMemorySnapshotRepository())
	ctx := context.Background()

	cart, err := s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.MergeLine(domain.CartLine{ProductID: "p1", Quantity: 1})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cart.Revision)

	cart, err = s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.SetQuantity("p1", 3)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cart.Revision)

	line, ok := cart.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)
}

func TestStore_Apply_MutateErrorLeavesSnapshot(t *testing.T) {
	s := New(NewMemorySnapshotRepository())
	ctx := context.Background()

	_, err := s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.MergeLine(domain.CartLine{ProductID: "p1", Quantity: 2})
	})
	require.NoError(t, err)

	_, err = s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.SetQuantity("p1", 0)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	cart, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cart.Revision)
	line, _ := cart.Line("p1")
	assert.Equal(t, 2, line.Quantity)
}

func TestStore_Replace(t *testing.T) {
	s := New(NewMemorySnapshotRepository())
	ctx := context.Background()

	_, err := s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.MergeLine(domain.CartLine{ProductID: "stale", Quantity: 1})
	})
	require.NoError(t, err)

	cart, err := s.Replace(ctx, "user-1", []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cart.Revision)
	assert.Len(t, cart.Lines, 2)
	_, ok := cart.Line("stale")
	assert.False(t, ok)
}

func TestStore_Subscribe(t *testing.T) {
	s := New(NewMemorySnapshotRepository())
	ctx := context.Background()

	var seen []int64
	unsubscribe := s.Subscribe(func(cart *domain.Cart) {
		seen = append(seen, cart.Revision)
	})

	_, err := s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.MergeLine(domain.CartLine{ProductID: "p1", Quantity: 1})
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, seen)

	unsubscribe()

	_, err = s.Apply(ctx, "user-1", func(c *domain.Cart) error {
		return c.SetQuantity("p1", 2)
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, seen)
}

func TestRedisSnapshotRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewRedisSnapshotRepository(client, time.Hour)
	ctx := context.Background()

	_, err := repo.Get(ctx, "user-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	cart := domain.NewCart("user-1")
	require.NoError(t, cart.MergeLine(domain.CartLine{ProductID: "p1", Name: "Mug", DisplayPrice: 2500, Quantity: 2}))
	cart.Revision = 3

	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Revision)
	line, ok := got.Line("p1")
	require.True(t, ok)
	assert.Equal(t, int64(2500), line.DisplayPrice)

	require.NoError(t, repo.Delete(ctx, "user-1"))
	_, err = repo.Get(ctx, "user-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRedisSnapshotRepository_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewRedisSnapshotRepository(client, time.Minute)
	require.NoError(t, repo.Save(context.Background(), domain.NewCart("user-1")))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(context.Background(), "user-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
