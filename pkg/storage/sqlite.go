package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/parley/pkg/providers"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// SQLite driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string

	// Driver selects the database/sql driver: "sqlite" (pure Go, default)
	// or "sqlite3" (cgo).
	Driver string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements Store on a single SQLite file. The connection pool
// is limited to one connection since SQLite only supports a single writer.
type SQLiteStore struct {
	db *sql.DB
}

func sqliteDSN(cfg SQLiteConfig) string {
	ms := cfg.BusyTimeout.Milliseconds()
	if cfg.Driver == DriverMattn {
		return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL", cfg.Path, ms)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", cfg.Path, ms)
}

// OpenSQLite opens (creating if needed) the database and applies migrations.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, sqliteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, db, DialectSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteChat(row rowScanner) (*ChatRecord, error) {
	var (
		c                ChatRecord
		raw              string
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Model, &raw, &c.MessageCount, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &c.Messages); err != nil {
		return nil, fmt.Errorf("decode messages of chat %q: %w", c.ID, err)
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return &c, nil
}

const sqliteChatColumns = `id, user_id, model, messages, message_count, created_at, updated_at`

// GetChat loads one chat.
func (s *SQLiteStore) GetChat(ctx context.Context, id string) (*ChatRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteChatColumns+` FROM chats WHERE id = ?`, id)
	c, err := scanSQLiteChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// SaveTurn inserts or appends inside one transaction.
func (s *SQLiteStore) SaveTurn(ctx context.Context, id, userID, model string, turn []providers.Message) (*ChatRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC()
	c, err := scanSQLiteChat(tx.QueryRowContext(ctx, `SELECT `+sqliteChatColumns+` FROM chats WHERE id = ?`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c = &ChatRecord{ID: id, UserID: userID, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("db error: %w", err)
	}

	c.Model = model
	c.Messages = append(c.Messages, turn...)
	c.MessageCount++
	c.UpdatedAt = now

	raw, err := json.Marshal(c.Messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (id, user_id, model, messages, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			model = excluded.model,
			messages = excluded.messages,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at
	`, c.ID, c.UserID, c.Model, string(raw), c.MessageCount, c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// CountChats counts the user's chats.
func (s *SQLiteStore) CountChats(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ListChats returns the user's chats, most recently updated first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]*ChatRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteChatColumns+` FROM chats WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*ChatRecord
	for rows.Next() {
		c, err := scanSQLiteChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteChat removes the chat.
func (s *SQLiteStore) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser loads one user.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	var (
		u       UserRecord
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, is_subscribed, subscription_id, updated_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.IsSubscribed, &u.SubscriptionID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.UpdatedAt = time.Unix(0, updated).UTC()
	return &u, nil
}

// SaveUser inserts or replaces the user.
func (s *SQLiteStore) SaveUser(ctx context.Context, u *UserRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, is_subscribed, subscription_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			is_subscribed = excluded.is_subscribed,
			subscription_id = excluded.subscription_id,
			updated_at = excluded.updated_at
	`, u.ID, u.IsSubscribed, u.SubscriptionID, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SetSubscribed updates the cached subscription flag.
func (s *SQLiteStore) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, is_subscribed, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			is_subscribed = excluded.is_subscribed,
			updated_at = excluded.updated_at
	`, id, subscribed, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Ping checks the database file is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
