package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/port"
)

const idempotencyKeyPrefix = "idempotency:"

// InventoryService is the ledger: it owns validation, idempotency and event
// emission, and delegates guarded counter mutations to the repository.
type InventoryService struct {
	repo        port.InventoryRepository
	idempotency port.IdempotencyStore
	eventQueue  chan domain.InventoryEvent
	now         func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewInventoryService wires the ledger. idempotency may be nil, in which case
// request IDs are ignored. A queueSize of zero disables events.
func NewInventoryService(repo port.InventoryRepository, idempotency port.IdempotencyStore, queueSize int) *InventoryService {
	s := &InventoryService{
		repo:        repo,
		idempotency: idempotency,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	if queueSize > 0 {
		s.eventQueue = make(chan domain.InventoryEvent, queueSize)
	}
	return s
}

func (s *InventoryService) Create(ctx context.Context, productUID string, quantityAvailable, reservedQuantity int) (*domain.Inventory, error) {
	inv, err := domain.NewInventory(productUID, quantityAvailable, reservedQuantity, s.now())
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateInventory(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create inventory %s: %w", productUID, err)
	}

	log.Info().Str("product_uid", productUID).Int64("id", created.ID).
		Int("available", created.QuantityAvailable).Int("reserved", created.ReservedQuantity).
		Msg("inventory created")
	s.emit(ctx, domain.EventInventoryCreated, created, 0)
	return created, nil
}

func (s *InventoryService) GetByUID(ctx context.Context, productUID string) (*domain.Inventory, error) {
	if productUID == "" {
		return nil, domain.ErrInvalidProductUID
	}

	inv, err := s.repo.GetInventory(ctx, productUID)
	if err != nil {
		return nil, fmt.Errorf("get inventory %s: %w", productUID, err)
	}
	return inv, nil
}

// SetAvailable overwrites the available counter. Negative values are rejected;
// the reserved counter is not consulted.
func (s *InventoryService) SetAvailable(ctx context.Context, productUID string, quantity int) error {
	if productUID == "" {
		return domain.ErrInvalidProductUID
	}
	if quantity < 0 || quantity > domain.MaxQuantity {
		return domain.ErrInvalidQuantity
	}

	inv, err := s.repo.SetAvailable(ctx, productUID, quantity, s.now())
	if err != nil {
		return fmt.Errorf("set available %s: %w", productUID, err)
	}

	log.Info().Str("product_uid", productUID).Int("available", quantity).Msg("inventory updated")
	s.emit(ctx, domain.EventInventoryUpdated, inv, 0)
	return nil
}

func (s *InventoryService) Reserve(ctx context.Context, requestID, productUID string, amount int) error {
	if productUID == "" {
		return domain.ErrInvalidProductUID
	}
	if !domain.ValidAmount(amount) {
		return domain.ErrInvalidAmount
	}

	return s.guarded(ctx, "reserve", requestID, func() (*domain.Inventory, error) {
		return s.repo.ReserveStock(ctx, productUID, amount, s.now())
	}, domain.EventInventoryReserved, productUID, amount)
}

func (s *InventoryService) Release(ctx context.Context, requestID, productUID string, amount int) error {
	if productUID == "" {
		return domain.ErrInvalidProductUID
	}
	if !domain.ValidAmount(amount) {
		return domain.ErrInvalidAmount
	}

	return s.guarded(ctx, "release", requestID, func() (*domain.Inventory, error) {
		return s.repo.ReleaseStock(ctx, productUID, amount, s.now())
	}, domain.EventInventoryReleased, productUID, amount)
}

func (s *InventoryService) guarded(
	ctx context.Context,
	op, requestID string,
	mutate func() (*domain.Inventory, error),
	eventType domain.EventType,
	productUID string,
	amount int,
) error {
	var idempotencyKey string
	if requestID != "" && s.idempotency != nil {
		idempotencyKey = fmt.Sprintf("%s%s:%s", idempotencyKeyPrefix, op, requestID)

		ok, err := s.idempotency.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return fmt.Errorf("%w: %w: idempotency check %s: %w", domain.ErrPersistence, domain.ErrTransient, idempotencyKey, err)
		}
		if !ok {
			return domain.ErrDuplicateRequest
		}
	}

	inv, err := mutate()
	if err != nil {
		if idempotencyKey != "" {
			if clearErr := s.idempotency.ClearIdempotency(ctx, idempotencyKey); clearErr != nil {
				log.Error().Err(clearErr).Str("key", idempotencyKey).Msg("failed to clear idempotency key")
			}
		}
		if !isGuardFailure(err) {
			log.Error().Err(err).Str("op", op).Str("product_uid", productUID).Msg("ledger mutation failed")
		}
		return fmt.Errorf("%s %s: %w", op, productUID, err)
	}

	log.Info().Str("op", op).Str("product_uid", productUID).Int("amount", amount).
		Int("available", inv.QuantityAvailable).Int("reserved", inv.ReservedQuantity).
		Msg("inventory " + op + "d")
	s.emit(ctx, eventType, inv, amount)
	return nil
}

func isGuardFailure(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInsufficientReservation) ||
		errors.Is(err, domain.ErrQuantityOverflow) ||
		errors.Is(err, domain.ErrInventoryNotFound)
}

func (s *InventoryService) emit(ctx context.Context, eventType domain.EventType, inv *domain.Inventory, amount int) {
	if s.eventQueue == nil || inv == nil {
		return
	}

	event := domain.InventoryEvent{
		ID:                uuid.New().String(),
		Type:              eventType,
		ProductUID:        inv.ProductUID,
		Amount:            amount,
		QuantityAvailable: inv.QuantityAvailable,
		ReservedQuantity:  inv.ReservedQuantity,
		OccurredAt:        inv.UpdatedAt,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		log.Warn().Str("type", string(eventType)).Str("product_uid", inv.ProductUID).Msg("event queue closed, dropping event")
		return
	}

	select {
	case s.eventQueue <- event:
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Str("type", string(eventType)).Str("product_uid", inv.ProductUID).Msg("dropping event")
	}
}

func (s *InventoryService) GetEventQueue() <-chan domain.InventoryEvent {
	return s.eventQueue
}

func (s *InventoryService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.eventQueue != nil {
		close(s.eventQueue)
	}
}
