package storage

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/parley/pkg/config"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		slog.Info("using in-memory chat store; conversations are lost on restart")
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		s, err := OpenSQLite(ctx, SQLiteConfig{
			Path:        cfg.SQLite.Path,
			Driver:      cfg.SQLite.Driver,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite chat store", "path", cfg.SQLite.Path, "driver", cfg.SQLite.Driver)
		return s, nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, PostgresConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
			Migrate:  cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("opened postgres chat store", "max_conns", cfg.Postgres.MaxConns)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
