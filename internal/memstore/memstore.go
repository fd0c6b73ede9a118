// Package memstore provides an in-memory RecordStore used by tests and the
// memory backend for local development.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/store"
)

type Store struct {
	mu      sync.Mutex
	records map[string][]core.Record // collection path -> ordered records

	// FailCreates makes the next n Create calls fail; tests use it to
	// exercise partial batch failure.
	failCreates int
	failErr     error
}

var _ store.RecordStore = (*Store)(nil)

func New() *Store {
	return &Store{records: make(map[string][]core.Record)}
}

// FailNextCreates arms the store to reject the next n Create calls with err.
func (s *Store) FailNextCreates(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreates = n
	s.failErr = err
}

func (s *Store) Create(_ context.Context, col store.Collection, rec core.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreates > 0 {
		s.failCreates--
		return "", s.failErr
	}

	rec.ID = uuid.NewString()
	s.records[col.Path()] = append(s.records[col.Path()], rec)
	return rec.ID, nil
}

func (s *Store) ReadAll(_ context.Context, col store.Collection) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record(nil), s.records[col.Path()]...), nil
}

func (s *Store) Get(_ context.Context, col store.Collection, id string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[col.Path()] {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Record{}, core.ErrRecordNotFound
}

func (s *Store) Delete(_ context.Context, col store.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.records[col.Path()]
	for i, r := range list {
		if r.ID == id {
			s.records[col.Path()] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return core.ErrRecordNotFound
}

func (s *Store) DeleteAll(_ context.Context, col store.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, col.Path())
	return nil
}
