package store

import (
	"sync"
)

// MemoryStore is an in-memory implementation of the snapshot store,
// used by tests and ephemeral daemons.
type MemoryStore struct {
	snapshots map[string]*Snapshot // by snapshot ID
	byWorld   map[string][]*Snapshot
	seq       map[string]int64
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*Snapshot),
		byWorld:   make(map[string][]*Snapshot),
		seq:       make(map[string]int64),
	}
}

// SaveSnapshot stores a snapshot and assigns its sequence number
func (s *MemoryStore) SaveSnapshot(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[snap.WorldID]++
	snap.Seq = s.seq[snap.WorldID]
	s.snapshots[snap.ID] = snap
	s.byWorld[snap.WorldID] = append(s.byWorld[snap.WorldID], snap)
	return nil
}

// GetSnapshot retrieves a snapshot by ID
func (s *MemoryStore) GetSnapshot(id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

// LatestSnapshot returns the newest snapshot for a world
func (s *MemoryStore) LatestSnapshot(worldID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byWorld[worldID]
	if len(snaps) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return snaps[len(snaps)-1], nil
}

// ListSnapshots returns snapshots for a world, newest first.
// limit <= 0 means no limit.
func (s *MemoryStore) ListSnapshots(worldID string, limit int) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byWorld[worldID]
	n := len(snaps)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Snapshot, 0, n)
	for i := len(snaps) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, snaps[i])
	}
	return out, nil
}

// PruneSnapshots deletes all but the newest keep snapshots of a world
// and returns how many were removed.
func (s *MemoryStore) PruneSnapshots(worldID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := s.byWorld[worldID]
	if len(snaps) <= keep {
		return 0, nil
	}

	cut := len(snaps) - keep
	for _, snap := range snaps[:cut] {
		delete(s.snapshots, snap.ID)
	}
	s.byWorld[worldID] = append([]*Snapshot(nil), snaps[cut:]...)
	return cut, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck is a no-op for the in-memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}
