package memo

import (
	"context"
	"sync"

	"github.com/goliatone/go-memoize/canonical"
)

// entry wraps a stored value so a stored nil stays distinguishable from an
// absent key.
type entry struct {
	value any
}

// MemoryStore is an in-process Store backed by a map. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[canonical.DigestKey]entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init lazily allocates the backing map. Safe to call repeatedly.
func (s *MemoryStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[canonical.DigestKey]entry)
	}
	return nil
}

// Get returns the value stored under key and whether it was present.
func (s *MemoryStore) Get(ctx context.Context, key canonical.DigestKey) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(ctx context.Context, key canonical.DigestKey, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[canonical.DigestKey]entry)
	}
	s.entries[key] = entry{value: value}
	return nil
}

// Clear drops every entry and returns how many were removed.
func (s *MemoryStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.entries)
	s.entries = nil
	return removed, nil
}
