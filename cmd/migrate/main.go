package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/rl1809/inventory-service/internal/adapter/storage"
	"github.com/rl1809/inventory-service/internal/adapter/storage/migrations"
	"github.com/rl1809/inventory-service/internal/logger"
)

func main() {
	_ = godotenv.Load()

	driver := flag.StringP("driver", "d", envOr("DB_DRIVER", "mysql"), "database driver: mysql or sqlite")
	dsn := flag.String("dsn", envOr("DB_DSN", ""), "data source name")
	down := flag.Bool("down", false, "revert the latest applied migration instead of applying pending ones")
	status := flag.Bool("status", false, "print the current schema version and exit")
	force := flag.Int("force", -1, "mark VERSION as applied and clear the dirty flag without running scripts")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	logger.Setup(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "console"), "migrate")

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "migrate: -dsn or DB_DSN is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := storage.OpenDB(storage.Dialect(*driver), *dsn, storage.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	switch {
	case *status:
		version, dirty, err := migrations.Version(ctx, db, *driver)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read schema version")
		}
		fmt.Printf("schema version: %d (dirty: %t)\n", version, dirty)

	case *force >= 0:
		if err := migrations.Force(ctx, db, *driver, *force); err != nil {
			log.Fatal().Err(err).Msg("force failed")
		}
		log.Info().Int("version", *force).Msg("schema version forced")

	case *down:
		version, err := migrations.Down(ctx, db, *driver)
		if err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		if version == 0 {
			log.Info().Msg("nothing to revert")
			return
		}
		log.Info().Uint("version", version).Msg("rollback complete")

	default:
		version, err := migrations.Up(ctx, db, *driver)
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Uint("version", version).Msg("migrations up to date")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
