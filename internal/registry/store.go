package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store serializes all access to the on-disk registry document. Every
// mutation re-reads the file under the write lock, merges the intended
// change into the fresh state, and writes atomically, so a slow writer can
// never clobber a faster one and a crash mid-write never leaves a torn
// document behind.
type Store struct {
	path string

	mu sync.Mutex
}

// NewStore creates a store persisting at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the registry file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current document. A missing file yields an empty registry.
func (s *Store) Load() (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Update applies fn to a freshly-read copy of the document and persists the
// result. fn returning an error abandons the write. A merge that changes
// nothing skips the write entirely, so a periodic pass that finds the world
// in order leaves no file-change event behind for watchers to chase.
func (s *Store) Update(fn func(*Registry) error) (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.read()
	if err != nil {
		return nil, err
	}
	before, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	after, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	if bytes.Equal(before, after) {
		return reg, nil
	}
	reg.LastUpdated = time.Now().UTC()
	if err := s.write(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Store) read() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %q: %w", s.path, err)
	}
	return &reg, nil
}

// write persists via temp-file-then-rename in the registry's directory.
func (s *Store) write(reg *Registry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize registry %q: %w", s.path, err)
	}
	return nil
}
