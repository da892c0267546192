// Package store persists which items have already received a reply.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger is the append-only dedup record set. One Ledger per process,
// opened before the orchestrator loop starts and left open until
// shutdown.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS reply_history (
	post_id       TEXT PRIMARY KEY,
	reply_content TEXT,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Open creates the database (and its parent directory) if needed and
// ensures the schema exists.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Replied reports whether the item already has a recorded reply.
func (l *Ledger) Replied(itemID string) (bool, error) {
	var one int
	err := l.db.QueryRow("SELECT 1 FROM reply_history WHERE post_id = ?", itemID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return true, nil
}

// Record inserts a dedup record. Idempotent: inserting an id that is
// already present is a no-op, not an error.
func (l *Ledger) Record(itemID, replyText string) error {
	_, err := l.db.Exec(
		"INSERT OR IGNORE INTO reply_history (post_id, reply_content) VALUES (?, ?)",
		itemID, replyText,
	)
	if err != nil {
		return fmt.Errorf("record reply: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
