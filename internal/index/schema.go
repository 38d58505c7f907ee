// Package index provides the SQLite-backed relational index over the
// vault: note metadata, full-text search, the wikilink graph, and tag
// associations.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/liminal-notes/vaultcore/internal/apperr"
)

// schemaVersion gates migrations via PRAGMA user_version. When the
// stored version is current, initialization is a no-op.
const schemaVersion = 1

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS links (
	source    TEXT NOT NULL,
	target    TEXT NOT NULL,
	target_id TEXT,
	PRIMARY KEY (source, target)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target_id ON links(target_id);

CREATE TABLE IF NOT EXISTS tags (
	id              TEXT PRIMARY KEY,
	display_name    TEXT NOT NULL DEFAULT '',
	color           TEXT,
	created_at      INTEGER NOT NULL DEFAULT 0,
	ai_auto_approve INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id TEXT NOT NULL,
	tag_id  TEXT NOT NULL,
	PRIMARY KEY (note_id, tag_id)
);

CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with index-specific operations. The Indexing
// Coordinator is the sole writer; query paths are read-only consumers.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies migrations.
// A migration failure is fatal: the engine must not operate against an
// uninitialized schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %v: %w", err, apperr.ErrSchema)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %v: %w", err, apperr.ErrSchema)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %v: %w", err, apperr.ErrSchema)
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("index: read schema version: %v: %w", err, apperr.ErrSchema)
	}
	if current >= schemaVersion {
		return nil
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("index: apply core schema: %v: %w", err, apperr.ErrSchema)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("index: store schema version: %v: %w", err, apperr.ErrSchema)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
