package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	domain "trainingplan/internal/domain/schedule"
)

// DefaultFileName is the document file inside the data directory.
const DefaultFileName = "schedule.json"

// FileStore implements Store as one pretty-printed JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the data directory and seeds the default document if absent.
// PRE: dir is a writable directory path (created if missing)
// POST: dir/schedule.json exists
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", domain.ErrStorage, err)
	}
	s := &FileStore{path: filepath.Join(dir, DefaultFileName)}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(domain.Default()); err != nil {
			return nil, err
		}
		slog.Info("schedule_file_seeded", "path", s.path)
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrStorage, s.path, err)
	}
	return s, nil
}

// Path returns the document file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads and decodes the document file.
// POST: Returns ErrNotFound if the file was removed after seeding
func (s *FileStore) Get(_ context.Context) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, s.path, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: decode %s: %v", domain.ErrStorage, s.path, err)
	}
	return doc, nil
}

// Put validates and replaces the document file.
// PRE: doc has a title and rows
// POST: File content equals doc
func (s *FileStore) Put(_ context.Context, doc domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc)
}

// Reset overwrites the file with the default document.
func (s *FileStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(domain.Default())
}

// write stores doc through a temp file and rename so readers never see a partial file.
func (s *FileStore) write(doc domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrStorage, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".schedule-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", domain.ErrStorage, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp: %v", domain.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", domain.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", domain.ErrStorage, err)
	}
	return nil
}
