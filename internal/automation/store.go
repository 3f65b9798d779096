package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persistence abstraction for the upload history.
// Implementations can be in-memory or file-based; History applies the cap and
// aggregation on top of whichever Store it is given.
type Store interface {
	// Load returns all entries, oldest first. A store that has never been
	// written returns an empty slice and no error.
	Load() ([]HistoryEntry, error)
	// Save replaces the stored entries.
	Save(entries []HistoryEntry) error
}

// FileStore keeps the history as one JSON array file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.Load.
func (s *FileStore) Load() ([]HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("read history %s: %w", s.path, err)
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", s.path, err)
	}
	return entries, nil
}

// Save implements Store.Save. The file is replaced with a rename so readers
// never observe a half-written array.
func (s *FileStore) Save(entries []HistoryEntry) error {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return writeJSONAtomic(s.path, entries)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.Load.
func (s *MemoryStore) Load() ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Save implements Store.Save.
func (s *MemoryStore) Save(entries []HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]HistoryEntry, len(entries))
	copy(s.entries, entries)
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".history-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}
