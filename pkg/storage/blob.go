package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// BlobStore is an opaque key to document store. Keys are plain file names.
type BlobStore interface {
	// Get returns the stored bytes, or an error wrapping ErrNotFound.
	Get(key string) ([]byte, error)
	// Put replaces the whole document stored under key.
	Put(key string, data []byte) error
	// Keys lists regular, non-hidden entries in no particular order.
	Keys() ([]string, error)
}

// DirStore keeps one file per key in a single directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir. The directory is created on the
// first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir returns the directory backing the store.
func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Get(key string) ([]byte, error) {
	path, err := ValidatePathWithinDir(key, s.dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put writes to a hidden temp file in the same directory and renames it over
// the target, so readers see either the old or the new document.
func (s *DirStore) Put(key string, data []byte) error {
	path, err := ValidatePathWithinDir(key, s.dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %v", ErrWrite, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrWrite, key, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", ErrWrite, key, err)
	}
	return nil
}

func (s *DirStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", s.dir, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		keys = append(keys, entry.Name())
	}
	return keys, nil
}

// MemoryStore is an in-memory BlobStore for tests and throwaway sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Put(key string, data []byte) error {
	if key != filepath.Base(key) {
		return fmt.Errorf("%w: invalid key %q", ErrValidation, key)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.mu.Lock()
	s.docs[key] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if strings.HasPrefix(k, ".") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
