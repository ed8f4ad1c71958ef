package domain

import "time"

type EventType string

const (
	EventInventoryCreated  EventType = "inventory.created"
	EventInventoryUpdated  EventType = "inventory.updated"
	EventInventoryReserved EventType = "inventory.reserved"
	EventInventoryReleased EventType = "inventory.released"
)

// InventoryEvent is emitted after a mutation has been committed.
type InventoryEvent struct {
	ID                string    `json:"id"`
	Type              EventType `json:"type"`
	ProductUID        string    `json:"product_uid"`
	Amount            int       `json:"amount,omitempty"`
	QuantityAvailable int       `json:"quantity_available"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	OccurredAt        time.Time `json:"occurred_at"`
}
