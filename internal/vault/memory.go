package vault

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store, used by tests and as a fallback
// when no vault path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Get returns the entry for service, or (nil, nil) when none is stored.
func (s *MemoryStore) Get(_ context.Context, service string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[service]
	if !ok {
		return nil, nil
	}
	return &Entry{Service: service, Value: value}, nil
}

// Upsert stores or replaces the entry for its service.
func (s *MemoryStore) Upsert(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Service] = entry.Value
	return nil
}
