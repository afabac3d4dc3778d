package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/qrinout/server/internal/qrinout/store"
)

// CheckpointStore is a mutex-guarded in-memory implementation for tests and
// dev environments.
type CheckpointStore struct {
	mu   sync.RWMutex
	data map[string]store.Checkpoint
}

func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{data: make(map[string]store.Checkpoint)}
}

func (s *CheckpointStore) GetCheckpoint(_ context.Context, id string) (store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[id]
	if !ok {
		return store.Checkpoint{}, store.ErrNotFound
	}
	return cp, nil
}

func (s *CheckpointStore) ListActiveCheckpoints(_ context.Context) ([]store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Checkpoint
	for _, cp := range s.data {
		if cp.Active() {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *CheckpointStore) AddCheckpoint(_ context.Context, cp store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data {
		if existing.Active() && strings.EqualFold(existing.Name, cp.Name) {
			return store.ErrDuplicateName
		}
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.data[cp.ID] = cp
	return nil
}

func (s *CheckpointStore) UpdateCheckpoint(_ context.Context, cp store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[cp.ID]; !ok {
		return store.ErrNotFound
	}
	cp.UpdatedAt = time.Now().UTC()
	s.data[cp.ID] = cp
	return nil
}

func (s *CheckpointStore) SoftDeleteCheckpoint(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.data[id]
	if !ok {
		return store.ErrNotFound
	}
	cp.DeletedAt = &at
	cp.UpdatedAt = at
	s.data[id] = cp
	return nil
}

func (s *CheckpointStore) IncrementSequence(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.data[id]
	if !ok || !cp.Active() {
		return 0, store.ErrNotFound
	}
	cp.Sequence++
	cp.UpdatedAt = time.Now().UTC()
	s.data[id] = cp
	return cp.Sequence, nil
}
