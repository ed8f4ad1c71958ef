package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/inventory-service/internal/adapter/storage/migrations"
	"github.com/rl1809/inventory-service/internal/core/domain"
)

func newSQLiteAdapter(t *testing.T) (*SQLAdapter, *sql.DB) {
	t.Helper()

	db, err := OpenDB(DialectSQLite, ":memory:", PoolConfig{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Up(context.Background(), db, string(DialectSQLite)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewSQLAdapter(db, DialectSQLite, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}), db
}

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}

	db, err := OpenDB(DialectMySQL, dsn, PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5})
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func seed(t *testing.T, adapter *SQLAdapter, uid string, available, reserved int) *domain.Inventory {
	t.Helper()
	inv, err := domain.NewInventory(uid, available, reserved, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		t.Fatalf("new inventory: %v", err)
	}
	created, err := adapter.CreateInventory(context.Background(), inv)
	if err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	return created
}

func TestCreateInventory_Success(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	ctx := context.Background()

	created := seed(t, adapter, "P1", 100, 0)
	if created.ID == 0 {
		t.Error("expected generated id")
	}

	second := seed(t, adapter, "P2", 5, 1)
	if second.ID <= created.ID {
		t.Errorf("expected increasing ids, got %d then %d", created.ID, second.ID)
	}

	inv, err := adapter.GetInventory(ctx, "P1")
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if inv.ID != created.ID || inv.ProductUID != "P1" || inv.QuantityAvailable != 100 || inv.ReservedQuantity != 0 {
		t.Errorf("unexpected record: %+v", inv)
	}
	if !inv.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", created.CreatedAt, inv.CreatedAt)
	}
}

func TestCreateInventory_Duplicate(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	seed(t, adapter, "P1", 1, 0)

	inv, _ := domain.NewInventory("P1", 2, 0, time.Now())
	_, err := adapter.CreateInventory(context.Background(), inv)
	if !errors.Is(err, domain.ErrInventoryExists) {
		t.Errorf("expected ErrInventoryExists, got: %v", err)
	}
}

func TestGetInventory_NotFound(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)

	_, err := adapter.GetInventory(context.Background(), "nonexistent-item")
	if !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Errorf("expected ErrInventoryNotFound, got: %v", err)
	}
}

func TestReserveRelease_Scenario(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	ctx := context.Background()
	seed(t, adapter, "P1", 100, 0)

	at := time.Now().UTC().Add(time.Minute).Truncate(time.Microsecond)
	inv, err := adapter.ReserveStock(ctx, "P1", 30, at)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if inv.QuantityAvailable != 70 || inv.ReservedQuantity != 30 {
		t.Errorf("expected (70, 30), got (%d, %d)", inv.QuantityAvailable, inv.ReservedQuantity)
	}
	if !inv.UpdatedAt.Equal(at) {
		t.Errorf("expected updated_at %v, got %v", at, inv.UpdatedAt)
	}

	inv, err = adapter.ReleaseStock(ctx, "P1", 10, at)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if inv.QuantityAvailable != 80 || inv.ReservedQuantity != 20 {
		t.Errorf("expected (80, 20), got (%d, %d)", inv.QuantityAvailable, inv.ReservedQuantity)
	}

	_, err = adapter.ReserveStock(ctx, "P1", 81, at.Add(time.Minute))
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	inv, _ = adapter.GetInventory(ctx, "P1")
	if inv.QuantityAvailable != 80 || inv.ReservedQuantity != 20 || !inv.UpdatedAt.Equal(at) {
		t.Errorf("record changed after failed reserve: %+v", inv)
	}
}

func TestReleaseStock_InsufficientReservation(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	ctx := context.Background()
	seed(t, adapter, "P1", 10, 3)

	_, err := adapter.ReleaseStock(ctx, "P1", 4, time.Now())
	if !errors.Is(err, domain.ErrInsufficientReservation) {
		t.Fatalf("expected ErrInsufficientReservation, got: %v", err)
	}

	inv, _ := adapter.GetInventory(ctx, "P1")
	if inv.QuantityAvailable != 10 || inv.ReservedQuantity != 3 {
		t.Errorf("expected (10, 3), got (%d, %d)", inv.QuantityAvailable, inv.ReservedQuantity)
	}
}

func TestGuardedMutations_NotFound(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	ctx := context.Background()

	if _, err := adapter.ReserveStock(ctx, "ghost", 1, time.Now()); !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Errorf("reserve: expected ErrInventoryNotFound, got: %v", err)
	}
	if _, err := adapter.ReleaseStock(ctx, "ghost", 1, time.Now()); !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Errorf("release: expected ErrInventoryNotFound, got: %v", err)
	}
	if _, err := adapter.SetAvailable(ctx, "ghost", 1, time.Now()); !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Errorf("set available: expected ErrInventoryNotFound, got: %v", err)
	}
}

func TestSetAvailable_Overwrites(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	seed(t, adapter, "P1", 10, 40)

	inv, err := adapter.SetAvailable(context.Background(), "P1", 3, time.Now())
	if err != nil {
		t.Fatalf("SetAvailable failed: %v", err)
	}
	if inv.QuantityAvailable != 3 || inv.ReservedQuantity != 40 {
		t.Errorf("expected (3, 40), got (%d, %d)", inv.QuantityAvailable, inv.ReservedQuantity)
	}
}

func TestReserveStock_Concurrent(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	ctx := context.Background()

	initialStock := 20
	totalRequests := 50
	seed(t, adapter, "concurrent-test", initialStock, 0)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adapter.ReserveStock(ctx, "concurrent-test", 1, time.Now())
			if err == nil {
				successCount.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	inv, _ := adapter.GetInventory(ctx, "concurrent-test")
	if inv.QuantityAvailable != 0 || inv.ReservedQuantity != initialStock {
		t.Errorf("expected (0, %d), got (%d, %d)", initialStock, inv.QuantityAvailable, inv.ReservedQuantity)
	}
}

func TestPersistenceError_ClosedDB(t *testing.T) {
	adapter, db := newSQLiteAdapter(t)
	db.Close()

	_, err := adapter.GetInventory(context.Background(), "P1")
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got: %v", err)
	}
	// a closed pool never recovers, so it must not be redelivered
	if errors.Is(err, domain.ErrTransient) {
		t.Errorf("expected a permanent error, got: %v", err)
	}
}

func TestWithRetry_RetryableErrors(t *testing.T) {
	adapter := NewSQLAdapter(nil, DialectMySQL, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})

	attempts := 0
	err := adapter.withRetry(context.Background(), "test", func() error {
		attempts++
		return retryIf(driver.ErrBadConn, true)
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, domain.ErrPersistence) || !errors.Is(err, domain.ErrTransient) || !errors.Is(err, driver.ErrBadConn) {
		t.Errorf("expected transient ErrPersistence wrapping ErrBadConn, got: %v", err)
	}

	attempts = 0
	err = adapter.withRetry(context.Background(), "test", func() error {
		attempts++
		if attempts < 2 {
			return retryIf(mysql.ErrInvalidConn, true)
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Errorf("expected success on attempt 2, got (%d, %v)", attempts, err)
	}
}

func TestWithRetry_UnmarkedErrorsNotRetried(t *testing.T) {
	adapter := NewSQLAdapter(nil, DialectMySQL, RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond})

	attempts := 0
	err := adapter.withRetry(context.Background(), "test", func() error {
		attempts++
		return domain.ErrInsufficientStock
	})
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected bare ErrInsufficientStock, got: %v", err)
	}

	// A network error that was not marked retryable may already have been applied
	attempts = 0
	err = adapter.withRetry(context.Background(), "test", func() error {
		attempts++
		return connectionReset("read")
	})
	if attempts != 1 {
		t.Errorf("expected unmarked error to stop after 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrTransient) {
		t.Errorf("expected non-transient ErrPersistence, got: %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{driver.ErrBadConn, true},
		{fmt.Errorf("begin tx: %w", mysql.ErrInvalidConn), true},
		{&net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{sql.ErrTxDone, false},
		{&mysql.MySQLError{Number: 1062}, false},
		{nil, false},
	}

	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Errorf("isTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestMySQL_ReserveRelease(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := migrations.Up(ctx, db, string(DialectMySQL)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	adapter := NewSQLAdapter(db, DialectMySQL, RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond})

	uid := "mysql-test-" + time.Now().Format("20060102150405.000000")
	defer db.ExecContext(ctx, `DELETE FROM inventories WHERE product_uid = ?`, uid)

	seed(t, adapter, uid, 10, 0)

	if _, err := adapter.ReserveStock(ctx, uid, 4, time.Now()); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := adapter.ReserveStock(ctx, uid, 7, time.Now()); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}

	inv, err := adapter.ReleaseStock(ctx, uid, 4, time.Now())
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if inv.QuantityAvailable != 10 || inv.ReservedQuantity != 0 {
		t.Errorf("expected (10, 0), got (%d, %d)", inv.QuantityAvailable, inv.ReservedQuantity)
	}

	dup, _ := domain.NewInventory(uid, 1, 0, time.Now())
	if _, err := adapter.CreateInventory(ctx, dup); !errors.Is(err, domain.ErrInventoryExists) {
		t.Errorf("expected ErrInventoryExists, got: %v", err)
	}
}

func TestIsRolledBack(t *testing.T) {
	if !isRolledBack(fmt.Errorf("update inventory: %w", &mysql.MySQLError{Number: 1213})) {
		t.Error("expected deadlock to be retryable")
	}
	if isRolledBack(&mysql.MySQLError{Number: 3819}) {
		t.Error("expected check constraint violation not to be retryable")
	}
}

func TestReleaseStock_CounterBounds(t *testing.T) {
	adapter, _ := newSQLiteAdapter(t)
	ctx := context.Background()
	seed(t, adapter, "P1", domain.MaxQuantity, 1)

	_, err := adapter.ReleaseStock(ctx, "P1", 1, time.Now().UTC())
	if !errors.Is(err, domain.ErrQuantityOverflow) || errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected bare ErrQuantityOverflow, got: %v", err)
	}

	inv, err := adapter.GetInventory(ctx, "P1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if inv.QuantityAvailable != domain.MaxQuantity || inv.ReservedQuantity != 1 {
		t.Errorf("record changed: (%d, %d)", inv.QuantityAvailable, inv.ReservedQuantity)
	}
}
