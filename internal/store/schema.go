// Package store provides the SQLite-backed note store with optional FTS5
// full-text search.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	delta        TEXT,
	locked       INTEGER NOT NULL DEFAULT 0,
	sealed       BLOB,
	color        TEXT NOT NULL DEFAULT '',
	notebook     TEXT NOT NULL DEFAULT '',
	topic        TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '[]',
	date_created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	date_edited  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_edited ON notes(date_edited);

CREATE TABLE IF NOT EXISTS vault_meta (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	salt       BLOB NOT NULL,
	verifier   BLOB NOT NULL,
	kdf_time   INTEGER NOT NULL,
	kdf_memory INTEGER NOT NULL
);
`

// DB wraps a sql.DB with note store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
