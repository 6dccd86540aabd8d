// Package index provides a SQLite cache of post front matter with optional FTS5 search.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS posts (
	path        TEXT PRIMARY KEY,
	slug        TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL DEFAULT '',
	date        TEXT,
	tags        TEXT NOT NULL DEFAULT '[]',
	draft       INTEGER NOT NULL DEFAULT 0,
	frontmatter TEXT NOT NULL DEFAULT '{}',
	body        TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn   *sql.DB
	folder string
}

// Open opens (or creates) the SQLite database and applies the schema.
// folder is the posts directory, used to derive slugs.
func Open(dsn, folder string) (*DB, error) {
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
	return &DB{conn: conn, folder: folder}, nil
}

// Folder returns the posts directory this index covers.
func (db *DB) Folder() string {
	return db.folder
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
