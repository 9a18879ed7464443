package persistence

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps checkpoints in process memory. For tests and
// fire-and-forget sessions.
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[string]*Checkpoint
}

// NewMemoryStore creates an in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{latest: make(map[string]*Checkpoint)}
}

// Save stores the checkpoint as the session's latest snapshot.
func (s *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cp
	s.latest[cp.SessionID] = &copied
	return nil
}

// LoadLatest returns the session's checkpoint, or ErrNotFound.
func (s *MemoryStore) LoadLatest(ctx context.Context, sessionID string) (*Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.latest[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *cp
	return &copied, nil
}

// List returns the session IDs with a checkpoint, sorted.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.latest))
	for id := range s.latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
