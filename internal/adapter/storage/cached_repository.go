package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/port"
)

// CachedRepository is a cache-aside decorator. Reads go through the cache and
// concurrent misses for one product collapse into a single load. Every
// mutation invalidates the entry. Cache failures are logged, never returned.
type CachedRepository struct {
	next  port.InventoryRepository
	cache port.InventoryCache
	group singleflight.Group
}

func NewCachedRepository(next port.InventoryRepository, cache port.InventoryCache) *CachedRepository {
	return &CachedRepository{next: next, cache: cache}
}

func (c *CachedRepository) CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	return c.next.CreateInventory(ctx, inv)
}

func (c *CachedRepository) GetInventory(ctx context.Context, productUID string) (*domain.Inventory, error) {
	cached, err := c.cache.GetInventory(ctx, productUID)
	if err != nil {
		log.Warn().Err(err).Str("product_uid", productUID).Msg("inventory cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do(productUID, func() (interface{}, error) {
		// the result is shared with every waiter, so the first caller
		// leaving must not cancel it
		loadCtx := context.WithoutCancel(ctx)
		inv, err := c.next.GetInventory(loadCtx, productUID)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SetInventory(loadCtx, *inv); err != nil {
			log.Warn().Err(err).Str("product_uid", productUID).Msg("inventory cache write failed")
		}
		return *inv, nil
	})
	if err != nil {
		return nil, err
	}

	inv := v.(domain.Inventory)
	return &inv, nil
}

func (c *CachedRepository) SetAvailable(ctx context.Context, productUID string, quantity int, at time.Time) (*domain.Inventory, error) {
	defer c.invalidate(ctx, productUID)
	return c.next.SetAvailable(ctx, productUID, quantity, at)
}

func (c *CachedRepository) ReserveStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error) {
	defer c.invalidate(ctx, productUID)
	return c.next.ReserveStock(ctx, productUID, amount, at)
}

func (c *CachedRepository) ReleaseStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error) {
	defer c.invalidate(ctx, productUID)
	return c.next.ReleaseStock(ctx, productUID, amount, at)
}

func (c *CachedRepository) invalidate(ctx context.Context, productUID string) {
	if err := c.cache.InvalidateInventory(ctx, productUID); err != nil {
		log.Warn().Err(err).Str("product_uid", productUID).Msg("inventory cache invalidation failed")
	}
}
