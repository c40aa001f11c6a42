package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
)

type stateEntry struct {
	value     []byte
	expiresAt time.Time
}

// StateStore keeps short-lived single-use values such as OAuth state tokens.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	now     func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]stateEntry), now: time.Now}
}

func (s *StateStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = stateEntry{value: value, expiresAt: now.Add(ttl)}
	return nil
}

// Take returns and removes the value. Expired or unknown keys yield ErrNotFound.
func (s *StateStore) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("memory.StateStore.Take: %w", domain.ErrNotFound)
	}
	delete(s.entries, key)
	if s.now().After(e.expiresAt) {
		return nil, fmt.Errorf("memory.StateStore.Take: expired: %w", domain.ErrNotFound)
	}
	return e.value, nil
}
