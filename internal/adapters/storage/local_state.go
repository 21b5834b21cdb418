package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

// LocalState keeps the ambient session flags in the local_storage table, next to the
// schedule the same device caches. It satisfies session.State.
// Failures are logged and read as absent keys; an unreadable flag resolves to guest.
type LocalState struct {
	db SQLDB
}

// NewLocalState creates a state over an initialized database.
// PRE: InitDB has run on db
func NewLocalState(db SQLDB) *LocalState {
	return &LocalState{db: db}
}

// Get returns the value for key.
func (s *LocalState) Get(key string) (string, bool) {
	var v string
	err := s.db.QueryRowContext(context.Background(), `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("local_state_read_failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// Set stores value under key.
func (s *LocalState) Set(key, value string) {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		slog.Warn("local_state_write_failed", "key", key, "error", err)
	}
}

// Remove deletes key if present.
func (s *LocalState) Remove(key string) {
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		slog.Warn("local_state_write_failed", "key", key, "error", err)
	}
}
