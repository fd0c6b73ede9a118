package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tally/internal/core"
)

// FileStore persists each snapshot as a JSON file under a base directory,
// the on-device equivalent of the original local-storage bucket.
type FileStore struct {
	mu   sync.Mutex
	base string
}

func NewFileStore(base string) (*FileStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror store directory: %w", err)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.base, strings.ReplaceAll(key, "/", "_")+".json")
}

func (s *FileStore) Load(key string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read %s: %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return snap, true, nil
}

func (s *FileStore) Save(key string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and the memory backend.
type MemStore struct {
	mu   sync.Mutex
	data map[string]Snapshot
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]Snapshot)}
}

func (s *MemStore) Load(key string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.data[key]
	if ok {
		snap.Records = append([]core.Record(nil), snap.Records...)
	}
	return snap, ok, nil
}

func (s *MemStore) Save(key string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Records = append([]core.Record(nil), snap.Records...)
	s.data[key] = snap
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
