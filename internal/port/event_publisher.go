package port

import (
	"context"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.InventoryEvent) error
}
