package party

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tally/internal/core"
)

// FileStore keeps each directory as a small JSON file under a base
// directory, mirroring the original on-device storage model.
type FileStore struct {
	mu   sync.Mutex
	base string
}

func NewFileStore(base string) (*FileStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create party store directory: %w", err)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) path(key string) string {
	// Keys contain a "/" between namespace and owner; flatten for the fs.
	return filepath.Join(s.base, strings.ReplaceAll(key, "/", "_")+".json")
}

func (s *FileStore) Load(key string) ([]core.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var parties []core.Party
	if err := json.Unmarshal(data, &parties); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return parties, nil
}

func (s *FileStore) Save(key string, parties []core.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(parties, "", "  ")
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

// MemStore is an in-memory Store for tests and the memory backend.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]core.Party
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]core.Party)}
}

func (s *MemStore) Load(key string) ([]core.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Party(nil), s.data[key]...), nil
}

func (s *MemStore) Save(key string, parties []core.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]core.Party(nil), parties...)
	return nil
}
