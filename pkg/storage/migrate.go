package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"mercator-hq/parley/pkg/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migration dialects.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "pgx"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseDownContext is a seam for testing goose.DownContext.
var gooseDownContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.DownContext(ctx, db, dir, opts...)
}

// gooseVersion is a seam for testing goose.GetDBVersionContext.
var gooseVersion = func(ctx context.Context, db *sql.DB) (int64, error) {
	return goose.GetDBVersionContext(ctx, db)
}

func migrationDir(dialect string) (fs.FS, error) {
	var dir string
	switch dialect {
	case DialectSQLite:
		dir = "migrations/sqlite"
	case DialectPostgres:
		dir = "migrations/postgres"
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	return fs.Sub(migrationsFS, dir)
}

func prepareGoose(dialect string) error {
	sub, err := migrationDir(dialect)
	if err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect(dialect)
}

// Migrate applies all pending migrations for dialect to db.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration for dialect.
func Rollback(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(dialect); err != nil {
		return err
	}
	if err := gooseDownContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the schema version recorded in db.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(dialect); err != nil {
		return 0, err
	}
	v, err := gooseVersion(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// OpenMigrationDB opens a database/sql handle on the configured backend and
// returns it with its migration dialect. The memory backend has no schema.
func OpenMigrationDB(cfg config.StorageConfig) (*sql.DB, string, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		sc := SQLiteConfig{Path: cfg.SQLite.Path, Driver: cfg.SQLite.Driver, BusyTimeout: cfg.SQLite.BusyTimeout}
		if sc.Path == "" {
			return nil, "", fmt.Errorf("db path cannot be empty")
		}
		if sc.Driver == "" {
			sc.Driver = DriverModernc
		}
		if sc.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
				return nil, "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := sql.Open(sc.Driver, sqliteDSN(sc))
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(1)
		return db, DialectSQLite, nil
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, "", fmt.Errorf("postgres dsn cannot be empty")
		}
		connCfg, err := pgx.ParseConfig(cfg.Postgres.DSN)
		if err != nil {
			return nil, "", fmt.Errorf("parse postgres dsn: %w", err)
		}
		return stdlib.OpenDB(*connCfg), DialectPostgres, nil
	case BackendMemory:
		return nil, "", fmt.Errorf("the memory backend has no schema to migrate")
	default:
		return nil, "", fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
