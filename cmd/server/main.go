package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-service/internal/adapter/handler"
	"github.com/rl1809/inventory-service/internal/adapter/handler/rpc"
	"github.com/rl1809/inventory-service/internal/adapter/messaging"
	"github.com/rl1809/inventory-service/internal/adapter/storage"
	"github.com/rl1809/inventory-service/internal/adapter/storage/migrations"
	"github.com/rl1809/inventory-service/internal/config"
	"github.com/rl1809/inventory-service/internal/core/domain"
	"github.com/rl1809/inventory-service/internal/core/service"
	"github.com/rl1809/inventory-service/internal/logger"
	"github.com/rl1809/inventory-service/internal/port"
)

const publishTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var repo port.InventoryRepository
	var db *sql.DB
	if cfg.DBDriver == "memory" {
		repo = storage.NewMemoryAdapter()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	} else {
		db, err = openDatabase(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
		}
		repo = storage.NewSQLAdapter(db, storage.Dialect(cfg.DBDriver), storage.RetryPolicy{
			MaxAttempts: cfg.DBMaxRetries,
			Delay:       cfg.DBRetryDelay,
		})
	}

	// Initialize Redis
	var rdb *redis.Client
	var idempotency port.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: cfg.RedisPoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.IdempotencyTTL, cfg.CacheTTL)
		repo = storage.NewCachedRepository(repo, redisAdapter)
		idempotency = redisAdapter
	}

	inventoryService := service.NewInventoryService(repo, idempotency, cfg.QueueSize)

	// Initialize RabbitMQ
	var amqpConn *amqp.Connection
	var publisher port.EventPublisher = messaging.LogPublisher{}
	var consumer *messaging.Consumer
	if cfg.AMQPURL != "" {
		var pubCh *amqp.Channel
		amqpConn, pubCh, err = messaging.SetupConn(cfg.AMQPURL, cfg.AMQPExchange, cfg.DBMaxRetries, 2*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect rabbitmq")
		}
		publisher = messaging.NewPublisher(pubCh, cfg.AMQPExchange)

		consumeCh, err := amqpConn.Channel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open consumer channel")
		}
		consumer = messaging.NewConsumer(consumeCh, inventoryService, cfg.AMQPReserveQueue, cfg.AMQPReleaseQueue, cfg.WorkerCount)
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("connected to rabbitmq")
	}

	// Start worker pool
	var wg sync.WaitGroup
	if events := inventoryService.GetEventQueue(); events != nil {
		for i := 0; i < cfg.WorkerCount; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				workerLoop(id, events, publisher)
			}(i)
		}
		log.Info().Int("workers", cfg.WorkerCount).Msg("started event workers")
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLogger))
	rpc.RegisterInventoryServiceServer(grpcServer, handler.NewGRPCHandler(inventoryService))

	// Initialize HTTP server
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(handler.AccessLog)
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	handler.NewHTTPHandler(inventoryService).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		}).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		log.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info().Msg("gRPC server stopped")
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	// Close event queue and wait for workers
	inventoryService.Close()
	wg.Wait()
	log.Info().Msg("workers stopped")

	// Close connections
	if amqpConn != nil {
		amqpConn.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Info().Msg("connections closed")
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := storage.OpenDB(storage.Dialect(cfg.DBDriver), cfg.DBDSN, storage.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	if cfg.MigrateOnStart {
		version, err := migrations.Up(ctx, db, cfg.DBDriver)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Uint("version", version).Msg("migrations up to date")
	}
	return db, nil
}

func workerLoop(id int, queue <-chan domain.InventoryEvent, publisher port.EventPublisher) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if err := publisher.Publish(ctx, event); err != nil {
			log.Error().Err(err).Int("worker", id).Str("event_id", event.ID).
				Str("type", string(event.Type)).Str("product_uid", event.ProductUID).
				Msg("failed to publish event")
		}

		cancel()
	}
}
