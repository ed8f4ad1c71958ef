package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

type memoryEntry struct {
	mu  sync.Mutex
	inv domain.Inventory
}

// MemoryAdapter keeps inventories in process. Each product has its own lock,
// which is sound for a single-process deployment only.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	nextID  int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryAdapter) CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[inv.ProductUID]; ok {
		return nil, domain.ErrInventoryExists
	}

	m.nextID++
	inv.ID = m.nextID
	m.entries[inv.ProductUID] = &memoryEntry{inv: inv}
	return &inv, nil
}

func (m *MemoryAdapter) GetInventory(ctx context.Context, productUID string) (*domain.Inventory, error) {
	entry, err := m.entry(productUID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	inv := entry.inv
	return &inv, nil
}

func (m *MemoryAdapter) SetAvailable(ctx context.Context, productUID string, quantity int, at time.Time) (*domain.Inventory, error) {
	return m.mutate(productUID, func(inv *domain.Inventory) error {
		return inv.SetAvailable(quantity, at)
	})
}

func (m *MemoryAdapter) ReserveStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error) {
	return m.mutate(productUID, func(inv *domain.Inventory) error {
		return inv.Reserve(amount, at)
	})
}

func (m *MemoryAdapter) ReleaseStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error) {
	return m.mutate(productUID, func(inv *domain.Inventory) error {
		return inv.Release(amount, at)
	})
}

func (m *MemoryAdapter) entry(productUID string) (*memoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[productUID]
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}
	return entry, nil
}

// mutate applies fn to a copy and stores it only on success.
func (m *MemoryAdapter) mutate(productUID string, fn func(inv *domain.Inventory) error) (*domain.Inventory, error) {
	entry, err := m.entry(productUID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.inv
	if err := fn(&next); err != nil {
		return nil, err
	}
	entry.inv = next

	out := next
	return &out, nil
}
