package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileStore keeps every key in a single JSON document on disk.
type FileStore struct {
	mu    sync.RWMutex
	inMem map[string]string
	path  string
	lock  *flock.Flock
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: filepath.Clean(path),
	}
	s.lock = flock.New(s.path + ".lock")

	m, err := s.readDisk()
	if err != nil {
		return nil, err
	}
	s.inMem = m
	return s, nil
}

// readDisk loads the document. A missing or corrupted file reads as empty
// instead of failing the app.
func (s *FileStore) readDisk() (map[string]string, error) {
	m := map[string]string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]string{}, nil
	}
	return m, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.inMem[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	return s.update(func(m map[string]string) bool {
		m[key] = string(value)
		return true
	})
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	return s.update(func(m map[string]string) bool {
		if _, ok := m[key]; !ok {
			return false
		}
		delete(m, key)
		return true
	})
}

func (s *FileStore) Close() error { return nil }

// update applies fn to the current file contents under an exclusive file
// lock, so writers in other processes only ever replace their own keys.
func (s *FileStore) update(fn func(m map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	m, err := s.readDisk()
	if err != nil {
		return err
	}
	changed := fn(m)
	s.inMem = m
	if !changed {
		return nil
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
