package backup

import (
	"context"
	"maps"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// Snapshots do not survive a process restart; it is intended for tests and
// throwaway deployments.
type MemStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{snaps: make(map[string]Snapshot)}
}

// Save implements [Store.Save].
func (s *MemStore) Save(_ context.Context, guildID string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[guildID] = maps.Clone(snap)
	return nil
}

// Load implements [Store.Load].
func (s *MemStore) Load(_ context.Context, guildID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[guildID]
	if !ok {
		return Snapshot{}, nil
	}
	return maps.Clone(snap), nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, guildID)
	return nil
}
