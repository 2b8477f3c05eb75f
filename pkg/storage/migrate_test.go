package storage

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/parley/pkg/config"
)

func stubGooseUp(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestMigrate_CallsGoose(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	called := false
	stubGooseUp(t, func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		assert.Same(t, db, got)
		assert.Equal(t, ".", dir)
		return nil
	})

	require.NoError(t, Migrate(context.Background(), db, DialectPostgres))
	assert.True(t, called)
}

func TestMigrate_PropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stubGooseUp(t, func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	})

	err = Migrate(context.Background(), db, DialectSQLite)
	require.ErrorContains(t, err, "migrate up: boom")
}

func TestMigrate_UnknownDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.Error(t, Migrate(context.Background(), db, "oracle"))
}

func TestRollback_CallsGoose(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseDownContext
	defer func() { gooseDownContext = orig }()
	called := false
	gooseDownContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		called = true
		return nil
	}

	require.NoError(t, Rollback(context.Background(), db, DialectSQLite))
	assert.True(t, called)
}

func TestMigrationFiles(t *testing.T) {
	for _, dialect := range []string{DialectSQLite, DialectPostgres} {
		sub, err := migrationDir(dialect)
		require.NoError(t, err)
		files, err := fs.Glob(sub, "*.sql")
		require.NoError(t, err)
		assert.Len(t, files, 2, dialect)
	}
}

func TestVersion_PropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseVersion
	defer func() { gooseVersion = orig }()
	gooseVersion = func(context.Context, *sql.DB) (int64, error) {
		return 0, errors.New("no table")
	}

	_, err = Version(context.Background(), db, DialectPostgres)
	require.ErrorContains(t, err, "read schema version: no table")
}

func TestOpenMigrationDB_SQLite(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := OpenMigrationDB(config.StorageConfig{
		Backend: BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "parley.db")},
	})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, DialectSQLite, dialect)

	require.NoError(t, Migrate(ctx, db, dialect))
	v, err := Version(ctx, db, dialect)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)

	require.NoError(t, Rollback(ctx, db, dialect))
	v, err = Version(ctx, db, dialect)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}

func TestOpenMigrationDB_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"memory", config.StorageConfig{Backend: BackendMemory}},
		{"postgres without dsn", config.StorageConfig{Backend: BackendPostgres}},
		{"bad postgres dsn", config.StorageConfig{Backend: BackendPostgres, Postgres: config.PostgresConfig{DSN: "postgres://%zz"}}},
		{"unknown", config.StorageConfig{Backend: "mongo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := OpenMigrationDB(tt.cfg)
			assert.Error(t, err)
		})
	}
}
