// Package app assembles the process-level dependencies shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/timetrack/internal/config"
	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/persistence/memory"
	"example.com/timetrack/internal/persistence/postgres"
	"example.com/timetrack/internal/persistence/sqlite"
)

// Backend is an opened store plus the resources behind it.
type Backend struct {
	Store domain.Store
	// Pool is set only for the postgres driver; the outbox and consumer need it.
	Pool *pgxpool.Pool

	close func() error
}

// Close releases the underlying connections.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore opens the store selected by cfg.StoreDriver. Postgres schemas are
// migrated on open and the outbox is enabled when Kafka publishing is on.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := OpenPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		var opts []postgres.Option
		if cfg.KafkaEnabled {
			opts = append(opts, postgres.WithOutbox())
		}
		return &Backend{
			Store: postgres.NewRepository(pool, opts...),
			Pool:  pool,
			close: func() error { pool.Close(); return nil },
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", slog.String("path", cfg.SQLitePath))
		return &Backend{Store: store, close: store.Close}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return &Backend{Store: memory.NewStore()}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// OpenPool connects to Postgres and verifies the connection.
func OpenPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// LoadLocation resolves DEFAULT_TIMEZONE. An empty name means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load DEFAULT_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
