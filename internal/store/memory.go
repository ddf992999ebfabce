package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process map. Default driver; state
// does not survive a process restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.SessionKey == "" {
		return ErrMissingKey
	}
	s.mu.Lock()
	s.records[rec.SessionKey] = *rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
