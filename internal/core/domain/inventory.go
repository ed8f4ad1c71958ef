package domain

import (
	"errors"
	"math"
	"time"
)

// MaxQuantity is the largest value either counter may hold; both columns are
// 32-bit integers.
const MaxQuantity = math.MaxInt32

var (
	ErrInventoryNotFound       = errors.New("inventory not found")
	ErrInventoryExists         = errors.New("inventory already exists")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInsufficientReservation = errors.New("insufficient reservation")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidQuantity         = errors.New("quantity must be between 0 and 2147483647")
	ErrQuantityOverflow        = errors.New("counter would exceed maximum quantity")
	ErrInvalidProductUID       = errors.New("product uid is required")
	ErrDuplicateRequest        = errors.New("duplicate request")
	ErrPersistence             = errors.New("persistence failure")

	// ErrTransient accompanies ErrPersistence when the failed operation is
	// known not to have been applied and may simply be tried again.
	ErrTransient = errors.New("transient failure")
)

// Inventory tracks sellable and held stock for one product. The two counters
// move independently; nothing ties their sum to a total.
type Inventory struct {
	ID                int64
	ProductUID        string
	QuantityAvailable int
	ReservedQuantity  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewInventory(productUID string, quantityAvailable, reservedQuantity int, now time.Time) (Inventory, error) {
	if productUID == "" {
		return Inventory{}, ErrInvalidProductUID
	}
	if !validQuantity(quantityAvailable) || !validQuantity(reservedQuantity) {
		return Inventory{}, ErrInvalidQuantity
	}

	return Inventory{
		ProductUID:        productUID,
		QuantityAvailable: quantityAvailable,
		ReservedQuantity:  reservedQuantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Reserve moves amount from available to reserved. The record is left
// untouched when the guard fails.
func (i *Inventory) Reserve(amount int, now time.Time) error {
	if amount <= 0 || amount > MaxQuantity {
		return ErrInvalidAmount
	}
	if i.QuantityAvailable < amount {
		return ErrInsufficientStock
	}
	if i.ReservedQuantity > MaxQuantity-amount {
		return ErrQuantityOverflow
	}

	i.QuantityAvailable -= amount
	i.ReservedQuantity += amount
	i.UpdatedAt = now
	return nil
}

// Release moves amount from reserved back to available.
func (i *Inventory) Release(amount int, now time.Time) error {
	if amount <= 0 || amount > MaxQuantity {
		return ErrInvalidAmount
	}
	if i.ReservedQuantity < amount {
		return ErrInsufficientReservation
	}
	if i.QuantityAvailable > MaxQuantity-amount {
		return ErrQuantityOverflow
	}

	i.QuantityAvailable += amount
	i.ReservedQuantity -= amount
	i.UpdatedAt = now
	return nil
}

// SetAvailable overwrites the available counter without looking at reservations.
func (i *Inventory) SetAvailable(quantity int, now time.Time) error {
	if !validQuantity(quantity) {
		return ErrInvalidQuantity
	}

	i.QuantityAvailable = quantity
	i.UpdatedAt = now
	return nil
}

func validQuantity(q int) bool {
	return q >= 0 && q <= MaxQuantity
}

// ValidAmount reports whether amount can be moved between counters at all.
func ValidAmount(amount int) bool {
	return amount > 0 && amount <= MaxQuantity
}
