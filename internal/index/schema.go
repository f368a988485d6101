// Package index caches resolved content in SQLite, with optional FTS5
// full-text search. It remembers invalid files too, so they are not
// re-parsed until their checksum changes.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS contents (
	path       TEXT PRIMARY KEY,
	model      TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	fields     TEXT NOT NULL DEFAULT '{}',
	body       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'valid',
	error      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS marks (
	path  TEXT NOT NULL,
	field TEXT NOT NULL,
	key   TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	UNIQUE(path, field, key)
);

CREATE TABLE IF NOT EXISTS unique_values (
	model TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	path  TEXT NOT NULL,
	UNIQUE(model, field, value)
);

CREATE INDEX IF NOT EXISTS idx_marks_key ON marks(key);
CREATE INDEX IF NOT EXISTS idx_marks_path ON marks(path);
CREATE INDEX IF NOT EXISTS idx_unique_path ON unique_values(path);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
