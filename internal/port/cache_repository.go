package port

import (
	"context"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency removes a key so a failed request can be retried
	ClearIdempotency(ctx context.Context, key string) error
}

type InventoryCache interface {
	// GetInventory returns the cached record, or nil on miss
	GetInventory(ctx context.Context, productUID string) (*domain.Inventory, error)

	SetInventory(ctx context.Context, inventory domain.Inventory) error

	InvalidateInventory(ctx context.Context, productUID string) error
}
