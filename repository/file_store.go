package repository

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

	"pricewatch/models"
)

// FileStore keeps the collection in one JSON file. Writes go to a temp file
// in the same directory and are renamed over the original.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// errCorruptFile marks a store file that exists but does not decode.
var errCorruptFile = errors.New("corrupt store file")

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadAll returns an empty collection when the file does not exist yet,
// and ErrStoreUnavailable when it cannot be read or decoded.
func (s *FileStore) LoadAll(ctx context.Context) ([]models.TrackedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// SaveAll replaces the whole collection.
func (s *FileStore) SaveAll(ctx context.Context, items []models.TrackedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(items)
}

// Update rewrites a corrupt file from an empty collection. Read errors are returned
// untouched so a transient failure never wipes the stored items.
func (s *FileStore) Update(ctx context.Context, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	switch {
	case errors.Is(err, errCorruptFile):
		slog.Warn("Tracking store corrupt, starting from an empty collection", "path", s.path, "error", err)
		items = nil
	case err != nil:
		return err
	}

	updated, err := fn(items)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.save(updated)
}

func (s *FileStore) load() ([]models.TrackedItem, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.TrackedItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	items := []models.TrackedItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %w %s: %v", models.ErrStoreUnavailable, errCorruptFile, s.path, err)
	}
	return items, nil
}

func (s *FileStore) save(items []models.TrackedItem) error {
	if items == nil {
		items = []models.TrackedItem{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tracked items: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tracked items: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync tracked items: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
