// Package storage is the durable store for chats and users.
//
// A chat row holds the non-system turns of one session together with a count
// of completed exchanges:
//
//	{id, userId, messages, messageCount, createdAt, updatedAt}
//
// The user row caches the subscription flag the access controller reconciles
// against the billing provider.
//
// Three backends implement Store:
//
//   - MemoryStore: process-local, for tests and throwaway deployments
//   - SQLiteStore: single-file database (modernc.org/sqlite or mattn/go-sqlite3)
//   - PostgresStore: pgx connection pool
//
// SQL schemas live in migrations/ and are applied with goose.
package storage
