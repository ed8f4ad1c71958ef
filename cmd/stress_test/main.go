package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/rl1809/inventory-service/internal/adapter/storage"
	"github.com/rl1809/inventory-service/internal/adapter/storage/migrations"
	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/core/service"
	"github.com/rl1809/inventory-service/internal/logger"
	"github.com/rl1809/inventory-service/internal/port"
)

func main() {
	driver := flag.String("driver", "sqlite", "storage: memory, sqlite or mysql")
	dsn := flag.String("dsn", "file:stress.db?_pragma=busy_timeout(5000)", "data source name for sqlite or mysql")
	redisAddr := flag.String("redis", "", "redis address for idempotency keys; empty disables")
	initialStock := flag.Int("stock", 20, "initial available quantity")
	totalRequests := flag.Int("requests", 50, "concurrent reserve requests")
	replays := flag.Int("replays", 10, "requests re-sent with an already used request id")
	flag.Parse()

	logger.Setup("warn", "console", "stress_test")
	ctx := context.Background()

	repo, cleanup, err := openRepository(ctx, *driver, *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer cleanup()

	var idempotency port.IdempotencyStore
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		idempotency = storage.NewRedisAdapter(rdb, time.Hour, 0)
	}

	inventoryService := service.NewInventoryService(repo, idempotency, 0)
	defer inventoryService.Close()

	productUID := "stress-" + uuid.NewString()
	if _, err := inventoryService.Create(ctx, productUID, *initialStock, 0); err != nil {
		log.Fatal().Err(err).Msg("failed to create inventory")
	}

	requestIDs := make([]string, *totalRequests)
	for i := range requestIDs {
		requestIDs[i] = uuid.NewString()
	}

	var successCount, soldOutCount, duplicateCount, errorCount atomic.Int32
	record := func(err error) {
		switch {
		case err == nil:
			successCount.Add(1)
		case errors.Is(err, domain.ErrInsufficientStock):
			soldOutCount.Add(1)
		case errors.Is(err, domain.ErrDuplicateRequest):
			duplicateCount.Add(1)
		default:
			errorCount.Add(1)
			log.Error().Err(err).Msg("unexpected error")
		}
	}

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(requestID string) {
			defer wg.Done()
			record(inventoryService.Reserve(ctx, requestID, productUID, 1))
		}(requestIDs[i])
	}
	if idempotency != nil {
		for i := 0; i < *replays && i < len(requestIDs); i++ {
			wg.Add(1)
			go func(requestID string) {
				defer wg.Done()
				record(inventoryService.Reserve(ctx, requestID, productUID, 1))
			}(requestIDs[i])
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := inventoryService.GetByUID(ctx, productUID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read final state")
	}

	success := int(successCount.Load())
	expected := min(*initialStock, *totalRequests)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Storage:          %s\n", *driver)
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Reserved:         %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOutCount.Load())
	fmt.Printf("Duplicates:       %d\n", duplicateCount.Load())
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Final State:      available=%d reserved=%d\n", final.QuantityAvailable, final.ReservedQuantity)
	fmt.Println("==========================================")

	failed := false
	if success != expected {
		fmt.Printf("FAIL: expected %d reservations, got %d\n", expected, success)
		failed = true
	}
	if final.ReservedQuantity != success || final.QuantityAvailable != *initialStock-success {
		fmt.Printf("FAIL: counters drifted from %d successful reservations\n", success)
		failed = true
	}
	if final.QuantityAvailable < 0 {
		fmt.Println("FAIL: over-reserved")
		failed = true
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("PASS: no over-reservation, counters consistent")
}

func openRepository(ctx context.Context, driver, dsn string) (port.InventoryRepository, func(), error) {
	if driver == "memory" {
		return storage.NewMemoryAdapter(), func() {}, nil
	}

	db, err := storage.OpenDB(storage.Dialect(driver), dsn, storage.PoolConfig{
		MaxOpenConns:    50,
		MaxIdleConns:    25,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		return nil, nil, err
	}
	if _, err := migrations.Up(ctx, db, driver); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	// retries are logged at warn; keep the report readable
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)

	repo := storage.NewSQLAdapter(db, storage.Dialect(driver), storage.RetryPolicy{MaxAttempts: 5, Delay: 100 * time.Millisecond})
	return repo, func() { db.Close() }, nil
}
