// Package migrations applies the versioned inventory schema with
// golang-migrate. Scripts are embedded per dialect as NNNN_name.up.sql /
// NNNN_name.down.sql; the applied version and dirty flag live in the
// schema_migrations table.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed mysql/*.sql sqlite/*.sql
var scripts embed.FS

var ErrNoMigrations = errors.New("no migrations for dialect")

// Up applies every pending migration and returns the resulting version.
func Up(ctx context.Context, db *sql.DB, dialect string) (uint, error) {
	var version uint
	err := run(ctx, db, dialect, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		v, _, err := currentVersion(m)
		version = v
		return err
	})
	return version, err
}

// Down reverts the most recently applied migration and returns its version,
// or 0 when nothing is applied.
func Down(ctx context.Context, db *sql.DB, dialect string) (uint, error) {
	var reverted uint
	err := run(ctx, db, dialect, func(m *migrate.Migrate) error {
		v, _, err := currentVersion(m)
		if err != nil || v == 0 {
			return err
		}
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("revert %04d: %w", v, err)
		}
		reverted = v
		return nil
	})
	return reverted, err
}

// Version returns the applied version, 0 if none, and whether a previous run
// failed halfway through it.
func Version(ctx context.Context, db *sql.DB, dialect string) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := run(ctx, db, dialect, func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = currentVersion(m)
		return err
	})
	return version, dirty, err
}

// Force records version as applied and clears the dirty flag without running
// any script. Used after repairing a half-applied migration by hand.
func Force(ctx context.Context, db *sql.DB, dialect string, version int) error {
	return run(ctx, db, dialect, func(m *migrate.Migrate) error {
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force %d: %w", version, err)
		}
		return nil
	})
}

func currentVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}

// run builds a migrator over db for the duration of fn. The caller keeps
// ownership of db; only the handles opened here are released.
func run(ctx context.Context, db *sql.DB, dialect string, fn func(m *migrate.Migrate) error) error {
	src, err := sourceFor(dialect)
	if err != nil {
		return err
	}
	defer src.Close()

	var drv database.Driver
	switch dialect {
	case "mysql":
		conn, err := db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Close()

		drv, err = migratemysql.WithConnection(ctx, conn, &migratemysql.Config{})
		if err != nil {
			return fmt.Errorf("mysql migration driver: %w", err)
		}
	case "sqlite":
		drv, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("sqlite migration driver: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrNoMigrations, dialect)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, drv)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	m.Log = migrateLogger{logger: log.With().Str("component", "migrate").Str("dialect", dialect).Logger()}

	// golang-migrate has no context support; stop between scripts instead.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	return fn(m)
}

func sourceFor(dialect string) (source.Driver, error) {
	if _, err := fs.Stat(scripts, dialect); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMigrations, dialect)
	}
	src, err := iofs.New(scripts, dialect)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", dialect, err)
	}
	return src, nil
}

type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}
