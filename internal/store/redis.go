package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

const snapshotKeyPrefix = "cart_snapshot:"

// RedisSnapshotRepository implements SnapshotRepository using Redis, so the
// snapshot survives process restarts and is shared across replicas.
type RedisSnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotRepository creates a Redis-backed snapshot repository.
func NewRedisSnapshotRepository(client *redis.Client, ttl time.Duration) *RedisSnapshotRepository {
	return &RedisSnapshotRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a snapshot by user ID.
func (r *RedisSnapshotRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := snapshotKeyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart snapshot", userID)
		}
		return nil, fmt.Errorf("redis get cart snapshot: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}

	return &cart, nil
}

// Save persists a snapshot with the configured TTL.
func (r *RedisSnapshotRepository) Save(ctx context.Context, cart *domain.Cart) error {
	key := snapshotKeyPrefix + cart.UserID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart snapshot: %w", err)
	}

	return nil
}

// Delete removes a user's snapshot.
func (r *RedisSnapshotRepository) Delete(ctx context.Context, userID string) error {
	key := snapshotKeyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart snapshot: %w", err)
	}

	return nil
}
