package port

import (
	"context"
	"time"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

type InventoryRepository interface {
	// CreateInventory inserts a record and returns it with the generated ID
	CreateInventory(ctx context.Context, inventory domain.Inventory) (*domain.Inventory, error)

	// GetInventory retrieves inventory by product UID, ErrInventoryNotFound if absent
	GetInventory(ctx context.Context, productUID string) (*domain.Inventory, error)

	// SetAvailable overwrites quantity_available
	SetAvailable(ctx context.Context, productUID string, quantity int, at time.Time) (*domain.Inventory, error)

	// ReserveStock moves amount from available to reserved, guarded on available >= amount
	ReserveStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error)

	// ReleaseStock moves amount from reserved to available, guarded on reserved >= amount
	ReleaseStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error)
}
