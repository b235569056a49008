// Package store persists session snapshots to a small embedded database
// file at a per-user cache location. Snapshots are keyed by a one-way
// hash of the connection identifier: the plaintext identifier (which may
// carry credentials) never reaches the file.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tabq-dev/tabq/core"
)

//go:embed schema.sql
var schemaSQL string

// Snapshot is the durable record of one connection's open tabs.
type Snapshot struct {
	// Key is the hex-encoded SHA-256 of the connection identifier.
	Key        string
	Queries    []string
	ActiveTab  int
	LastActive bool
}

// HashKey derives the persisted correlation key for an identifier.
// Deterministic; the sole key ever written to storage.
func HashKey(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// DefaultPath returns the per-user state file location.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("os.UserCacheDir: %w", err)
	}
	return filepath.Join(dir, "tabq", "state.db"), nil
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	return &Store{db: db}, nil
}

// Save upserts the snapshot, overwriting any prior one for its key. When
// the snapshot is marked last-active, the flag is cleared on all other
// rows first.
func (s *Store) Save(snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return core.NewPersistenceError(core.PersistenceIoFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	if snapshot.LastActive {
		if _, err := tx.Exec(`UPDATE sessions SET last_active = 0 WHERE key != ?`, snapshot.Key); err != nil {
			return core.NewPersistenceError(core.PersistenceIoFailure, err)
		}
	}

	lastActive := 0
	if snapshot.LastActive {
		lastActive = 1
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (key, active_tab, last_active, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			active_tab = excluded.active_tab,
			last_active = excluded.last_active,
			updated_at = CURRENT_TIMESTAMP`,
		snapshot.Key, snapshot.ActiveTab, lastActive)
	if err != nil {
		return core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	if _, err := tx.Exec(`DELETE FROM tabs WHERE session_key = ?`, snapshot.Key); err != nil {
		return core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	for i, query := range snapshot.Queries {
		if _, err := tx.Exec(`INSERT INTO tabs (session_key, position, query) VALUES (?, ?, ?)`,
			snapshot.Key, i, query); err != nil {
			return core.NewPersistenceError(core.PersistenceIoFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	return nil
}

// Load looks up the snapshot for an identifier. Absence is not an
// error: it means "no prior session" and yields (nil, nil).
func (s *Store) Load(identifier string) (*Snapshot, error) {
	return s.loadWhere(`key = ?`, HashKey(identifier))
}

// LoadLastActive returns whichever snapshot was active when the process
// last exited cleanly, or (nil, nil) when there is none.
func (s *Store) LoadLastActive() (*Snapshot, error) {
	return s.loadWhere(`last_active = 1`)
}

func (s *Store) loadWhere(where string, args ...any) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := &Snapshot{}
	var lastActive int

	err := s.db.QueryRow(
		`SELECT key, active_tab, last_active FROM sessions WHERE `+where, args...,
	).Scan(&snapshot.Key, &snapshot.ActiveTab, &lastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
	}
	snapshot.LastActive = lastActive != 0

	rows, err := s.db.Query(
		`SELECT position, query FROM tabs WHERE session_key = ? ORDER BY position`, snapshot.Key)
	if err != nil {
		return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var position int
		var query string
		if err := rows.Scan(&position, &query); err != nil {
			return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
		}

		// positions must be contiguous from zero
		if position != len(snapshot.Queries) {
			return nil, core.NewPersistenceError(core.PersistenceCorruptSnapshot,
				fmt.Errorf("tab position %d out of order", position))
		}
		snapshot.Queries = append(snapshot.Queries, query)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewPersistenceError(core.PersistenceIoFailure, err)
	}

	if len(snapshot.Queries) > 0 &&
		(snapshot.ActiveTab < 0 || snapshot.ActiveTab >= len(snapshot.Queries)) {
		return nil, core.NewPersistenceError(core.PersistenceCorruptSnapshot,
			fmt.Errorf("active tab %d out of range for %d tabs", snapshot.ActiveTab, len(snapshot.Queries)))
	}

	return snapshot, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
