package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trainingplan/internal/adapters/storage"
	domain "trainingplan/internal/domain/schedule"
)

// Keys used in the local_storage table; they match the browser's localStorage keys.
const (
	keyTitle = "scheduleTitle"
	keyRows  = "spreadsheetData"
)

// SQLiteStore implements Store as a device-local key/value store.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new local key/value store.
// PRE: db schema has been initialized with storage.InitDB
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get reads the title and rows keys.
// POST: Returns ErrNotFound when no rows were ever saved; a missing title falls back to the default
func (s *SQLiteStore) Get(ctx context.Context) (domain.Document, error) {
	rowsJSON, err := s.getValue(ctx, keyRows)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, keyRows, err)
	}

	doc := domain.Document{Title: domain.DefaultTitle}
	if err := json.Unmarshal([]byte(rowsJSON), &doc.Rows); err != nil {
		return domain.Document{}, fmt.Errorf("%w: decode %s: %v", domain.ErrStorage, keyRows, err)
	}

	title, err := s.getValue(ctx, keyTitle)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.Document{}, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, keyTitle, err)
	default:
		doc.Title = title
	}
	return doc, nil
}

// Put writes both keys in one transaction.
// PRE: doc has a title and rows
// POST: Both keys hold doc's values, or neither changed
func (s *SQLiteStore) Put(ctx context.Context, doc domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return s.write(ctx, doc)
}

// Reset stores the default document.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.write(ctx, domain.Default())
}

func (s *SQLiteStore) write(ctx context.Context, doc domain.Document) error {
	rowsJSON, err := json.Marshal(doc.Rows)
	if err != nil {
		return fmt.Errorf("%w: encode rows: %v", domain.ErrStorage, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	const upsert = "INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at"
	if _, err := tx.ExecContext(ctx, upsert, keyTitle, doc.Title, now); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, keyTitle, err)
	}
	if _, err := tx.ExecContext(ctx, upsert, keyRows, string(rowsJSON), now); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, keyRows, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) getValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	return value, err
}
