// Package store provides the SQLite-backed persistence layer for
// conversations and links. It is a dumb CRUD surface: structural invariants
// (no parent cycles, link endpoint existence) are the treeservice's job.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	subject      TEXT NOT NULL,
	model_name   TEXT NOT NULL,
	user_prompt  TEXT NOT NULL,
	llm_response TEXT,
	parent_id    INTEGER,
	prompted_at  DATETIME NOT NULL,
	responded_at DATETIME,
	FOREIGN KEY (parent_id) REFERENCES conversations (id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_parent ON conversations(parent_id);

CREATE TABLE IF NOT EXISTS conversation_links (
	a INTEGER NOT NULL,
	b INTEGER NOT NULL,
	UNIQUE(a, b),
	FOREIGN KEY (a) REFERENCES conversations (id),
	FOREIGN KEY (b) REFERENCES conversations (id)
);

CREATE INDEX IF NOT EXISTS idx_links_a ON conversation_links(a);
CREATE INDEX IF NOT EXISTS idx_links_b ON conversation_links(b);
`

// DB wraps a sql.DB with conversation-store operations.
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
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CountConversations returns the total number of stored conversations.
// Traversals use it as an iteration bound against corrupted parent chains.
func (db *DB) CountConversations() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
