package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

const (
	mysqlDuplicateEntry    = 1062
	mysqlLockWaitTimeout   = 1205
	mysqlDeadlock          = 1213
	sqliteConstraintUnique = 2067
)

const selectInventory = `
	SELECT id, product_uid, quantity_available, reserved_quantity, created_at, updated_at
	FROM inventories WHERE product_uid = ?`

type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// SQLAdapter persists inventories in a relational table. Guarded mutations are
// single conditional UPDATE statements, so concurrent callers cannot both pass
// a guard against a stale read.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
	retry   RetryPolicy
}

func NewSQLAdapter(db *sql.DB, dialect Dialect, retry RetryPolicy) *SQLAdapter {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &SQLAdapter{db: db, dialect: dialect, retry: retry}
}

func (m *SQLAdapter) CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	// An autocommit INSERT that fails in flight may have landed, so only
	// faults the driver reports as unsent are retried.
	err := m.withRetry(ctx, "insert inventory", func() error {
		result, err := m.db.ExecContext(ctx, `
			INSERT INTO inventories (product_uid, quantity_available, reserved_quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			inv.ProductUID, inv.QuantityAvailable, inv.ReservedQuantity, inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return domain.ErrInventoryExists
			}
			return retryIf(err, errors.Is(err, driver.ErrBadConn))
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

func (m *SQLAdapter) GetInventory(ctx context.Context, productUID string) (*domain.Inventory, error) {
	var inv *domain.Inventory
	err := m.withRetry(ctx, "query inventory", func() error {
		var err error
		inv, err = scanInventory(m.db.QueryRowContext(ctx, selectInventory, productUID))
		return retryIf(err, isTransient(err))
	})
	if err != nil {
		return nil, err
	}

	return inv, nil
}

func (m *SQLAdapter) SetAvailable(ctx context.Context, productUID string, quantity int, at time.Time) (*domain.Inventory, error) {
	return m.guardedUpdate(ctx, "set available", productUID, `
		UPDATE inventories
		SET quantity_available = ?, updated_at = ?
		WHERE product_uid = ?`,
		[]any{quantity, at, productUID},
		func(inv *domain.Inventory) error { return inv.SetAvailable(quantity, at) },
	)
}

func (m *SQLAdapter) ReserveStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error) {
	return m.guardedUpdate(ctx, "reserve stock", productUID, `
		UPDATE inventories
		SET quantity_available = quantity_available - ?, reserved_quantity = reserved_quantity + ?, updated_at = ?
		WHERE product_uid = ? AND quantity_available >= ? AND reserved_quantity <= ?`,
		[]any{amount, amount, at, productUID, amount, domain.MaxQuantity - amount},
		func(inv *domain.Inventory) error { return inv.Reserve(amount, at) },
	)
}

func (m *SQLAdapter) ReleaseStock(ctx context.Context, productUID string, amount int, at time.Time) (*domain.Inventory, error) {
	return m.guardedUpdate(ctx, "release stock", productUID, `
		UPDATE inventories
		SET quantity_available = quantity_available + ?, reserved_quantity = reserved_quantity - ?, updated_at = ?
		WHERE product_uid = ? AND reserved_quantity >= ? AND quantity_available <= ?`,
		[]any{amount, amount, at, productUID, amount, domain.MaxQuantity - amount},
		func(inv *domain.Inventory) error { return inv.Release(amount, at) },
	)
}

// guardedUpdate runs a conditional UPDATE and reads the row back in the same
// transaction. Zero affected rows means either no record or a failed guard;
// replaying the transition on the read-back row names the guard that failed.
func (m *SQLAdapter) guardedUpdate(ctx context.Context, op, productUID, query string, args []any, transition func(*domain.Inventory) error) (*domain.Inventory, error) {
	var inv *domain.Inventory
	err := m.inTx(ctx, op, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		current, err := scanInventory(tx.QueryRowContext(ctx, selectInventory, productUID))
		if err != nil {
			return err
		}
		if rows == 0 {
			next := *current
			if err := transition(&next); err != nil {
				return err
			}
		}

		inv = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inv, nil
}

// inTx retries the whole transaction only for faults raised before Commit;
// the transaction is rolled back then and nothing was applied. A failed Commit
// leaves the outcome unknown and is never retried.
func (m *SQLAdapter) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return m.withRetry(ctx, op, func() error {
		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return retryIf(fmt.Errorf("begin tx: %w", err), isTransient(err))
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return retryIf(err, isTransient(err) || isRolledBack(err))
		}

		if err := tx.Commit(); err != nil {
			return retryIf(fmt.Errorf("commit: %w", err), errors.Is(err, driver.ErrBadConn))
		}
		return nil
	})
}

// retryableError marks a failure that is known not to have been applied.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryIf(err error, ok bool) error {
	if err == nil || !ok {
		return err
	}
	return &retryableError{err: err}
}

// withRetry repeats fn while it fails with a retryable error. Domain outcomes
// are returned as-is; anything else is wrapped as ErrPersistence, and also as
// ErrTransient when the last failure was retryable.
func (m *SQLAdapter) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || isDomainError(err) {
			return err
		}
		var retryable *retryableError
		if !errors.As(err, &retryable) || attempt == m.retry.MaxAttempts {
			break
		}

		log.Warn().Err(err).Str("op", op).Str("dialect", string(m.dialect)).Int("attempt", attempt).
			Int("max_attempts", m.retry.MaxAttempts).Msg("transient database error, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w: %s: %w", domain.ErrPersistence, domain.ErrTransient, op, ctx.Err())
		case <-time.After(m.retry.Delay):
		}
	}

	var retryable *retryableError
	if errors.As(err, &retryable) {
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrPersistence, domain.ErrTransient, op, retryable.err)
	}
	log.Error().Err(err).Str("op", op).Str("dialect", string(m.dialect)).Msg("database operation failed")
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func scanInventory(row *sql.Row) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := row.Scan(&inv.ID, &inv.ProductUID, &inv.QuantityAvailable, &inv.ReservedQuantity, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInventoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrInventoryNotFound) ||
		errors.Is(err, domain.ErrInventoryExists) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInsufficientReservation) ||
		errors.Is(err, domain.ErrQuantityOverflow) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidQuantity)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isRolledBack reports MySQL lock conflicts; the statement did not apply and
// the transaction is rolled back before any retry.
func isRolledBack(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	return false
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqliteConstraintUnique
	}
	return false
}
