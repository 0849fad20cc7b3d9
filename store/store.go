// Package store persists session snapshots in a local SQLite database so
// a restarted server can offer every in-progress session back to its
// players. Blobs are opaque to the store and access never crosses the
// process boundary; clients cannot read or write snapshots directly.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_snapshots (
	session_id TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	saved_at   INTEGER NOT NULL
);`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes or replaces the snapshot for a session.
func (s *Store) Save(sessionID, snapshot string, savedAt int64) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO session_snapshots (session_id, snapshot, saved_at) VALUES (?, ?, ?)`,
		sessionID, snapshot, savedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the snapshot for a session, or sql.ErrNoRows if absent.
func (s *Store) Load(sessionID string) (string, error) {
	var snapshot string
	err := s.db.QueryRow(
		`SELECT snapshot FROM session_snapshots WHERE session_id = ?`, sessionID,
	).Scan(&snapshot)
	if err != nil {
		return "", fmt.Errorf("load snapshot %s: %w", sessionID, err)
	}
	return snapshot, nil
}

// All returns every stored snapshot keyed by session id.
func (s *Store) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT session_id, snapshot FROM session_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, snapshot string
		if err := rows.Scan(&id, &snapshot); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out[id] = snapshot
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot for a session, if any.
func (s *Store) Delete(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM session_snapshots WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
