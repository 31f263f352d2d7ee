// Package local keeps JSON documents on disk for single-node setups.
package local

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store provides thread-safe JSON file storage.
// Documents live at <base>/<collection>/[<owner>/]<id>.json.
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates a new local JSON store
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Save persists data to a JSON file
func (s *Store) Save(collection, id string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path(collection, "", id), data)
}

// Load reads data from a JSON file
func (s *Store) Load(collection, id string, data any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.path(collection, "", id), data)
}

// Update runs a read-modify-write on one document under the store lock.
// data is filled when the document exists and found reports whether it did;
// data is written back only when fn returns nil.
func (s *Store) Update(collection, id string, data any, fn func(found bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(collection, "", id)
	found := true
	if err := s.read(path, data); err != nil {
		if err != ErrNotFound {
			return err
		}
		found = false
	}

	if err := fn(found); err != nil {
		return err
	}
	return s.write(path, data)
}

// Delete removes a JSON file
func (s *Store) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(collection, "", id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// List returns all IDs in a collection
func (s *Store) List(collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(filepath.Join(s.basePath, escape(collection)))
}

// Exists checks if a record exists
func (s *Store) Exists(collection, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(collection, "", id))
	return err == nil
}

// SaveIn saves a document owned by owner within a collection
func (s *Store) SaveIn(collection, owner, id string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path(collection, owner, id), data)
}

// LoadIn loads a document owned by owner
func (s *Store) LoadIn(collection, owner, id string, data any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.path(collection, owner, id), data)
}

// ListIn lists the IDs of all documents of an owner
func (s *Store) ListIn(collection, owner string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(filepath.Join(s.basePath, escape(collection), escape(owner)))
}

func (s *Store) path(collection, owner, id string) string {
	parts := []string{s.basePath, escape(collection)}
	if owner != "" {
		parts = append(parts, escape(owner))
	}
	parts = append(parts, escape(id)+".json")
	return filepath.Join(parts...)
}

// write replaces the file atomically through a temp file and rename
func (s *Store) write(path string, data any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create collection directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		return fmt.Errorf("encode json: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (s *Store) read(path string, data any) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(data); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (s *Store) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// escape keeps IDs such as "org/alice" inside one path segment
func escape(name string) string {
	return url.PathEscape(name)
}
