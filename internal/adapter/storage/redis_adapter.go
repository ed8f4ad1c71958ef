package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

const (
	inventoryKeyPrefix = "inventory:"
	idempotencyKeyTTL  = 24 * time.Hour
	inventoryCacheTTL  = 30 * time.Second
)

type cachedInventory struct {
	ID                int64     `json:"id"`
	ProductUID        string    `json:"product_uid"`
	QuantityAvailable int       `json:"quantity_available"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type RedisAdapter struct {
	client         *redis.Client
	idempotencyTTL time.Duration
	cacheTTL       time.Duration
}

// NewRedisAdapter serves idempotency keys and the inventory cache. Zero TTLs
// fall back to defaults.
func NewRedisAdapter(client *redis.Client, idempotencyTTL, cacheTTL time.Duration) *RedisAdapter {
	if idempotencyTTL <= 0 {
		idempotencyTTL = idempotencyKeyTTL
	}
	if cacheTTL <= 0 {
		cacheTTL = inventoryCacheTTL
	}
	return &RedisAdapter{client: client, idempotencyTTL: idempotencyTTL, cacheTTL: cacheTTL}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) GetInventory(ctx context.Context, productUID string) (*domain.Inventory, error) {
	payload, err := r.client.Get(ctx, inventoryKeyPrefix+productUID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c cachedInventory
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode cached inventory: %w", err)
	}

	return &domain.Inventory{
		ID:                c.ID,
		ProductUID:        c.ProductUID,
		QuantityAvailable: c.QuantityAvailable,
		ReservedQuantity:  c.ReservedQuantity,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}, nil
}

func (r *RedisAdapter) SetInventory(ctx context.Context, inv domain.Inventory) error {
	payload, err := encodeInventory(inv)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, inventoryKeyPrefix+inv.ProductUID, payload, r.cacheTTL).Err()
}

func (r *RedisAdapter) InvalidateInventory(ctx context.Context, productUID string) error {
	return r.client.Del(ctx, inventoryKeyPrefix+productUID).Err()
}

func encodeInventory(inv domain.Inventory) ([]byte, error) {
	return json.Marshal(cachedInventory{
		ID:                inv.ID,
		ProductUID:        inv.ProductUID,
		QuantityAvailable: inv.QuantityAvailable,
		ReservedQuantity:  inv.ReservedQuantity,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	})
}
