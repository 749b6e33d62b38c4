package state

import (
	"context"
	"sync"

	"cable-orchestrator/internal/models"
)

// MemoryStore keeps mappings in process memory. It is the default store and
// the one tests substitute.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]models.FieldMapping
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]models.FieldMapping)}
}

// LoadMapping returns a copy of the mapping saved under key, or nil.
func (s *MemoryStore) LoadMapping(_ context.Context, key string) (models.FieldMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[key]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

// SaveMapping replaces the mapping saved under key.
func (s *MemoryStore) SaveMapping(_ context.Context, key string, m models.FieldMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[key] = m.Clone()
	return nil
}
