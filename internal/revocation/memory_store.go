package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[token]; !ok {
		s.revoked[token] = time.Now().UTC()
	}
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[token]
	return ok, nil
}
