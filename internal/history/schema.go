package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY,
	content    TEXT NOT NULL,
	format     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	preview    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn     *sql.DB
	capacity int
	now      func() time.Time
}

// Open opens (or creates) the SQLite database and applies the schema.
// A capacity below one falls back to DefaultCapacity.
func Open(dsn string, capacity int) (*DB, error) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn, capacity: capacity, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
