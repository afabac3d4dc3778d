package memory

import (
	"context"
	"sync"
	"time"

	"github.com/qrinout/server/internal/qrinout/store"
)

// ActivityStore is an in-memory append-only log of scan attempts. It is
// intended for use in tests and dev environments.
type ActivityStore struct {
	mu      sync.Mutex
	records []store.ActivityRecord
}

func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

func (s *ActivityStore) AppendActivity(_ context.Context, rec store.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *ActivityStore) LastSuccess(_ context.Context, guestID, checkpointID string) (store.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Appended in time order; walk backwards for the newest match.
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.GuestID == guestID && rec.CheckpointID == checkpointID && rec.Status == store.StatusSuccess {
			return rec, nil
		}
	}
	return store.ActivityRecord{}, store.ErrNotFound
}

func (s *ActivityStore) ListRecentActivity(_ context.Context, limit int) ([]store.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]store.ActivityRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Records returns a copy of all appended records. Test-only helper.
func (s *ActivityStore) Records() []store.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.ActivityRecord, len(s.records))
	copy(out, s.records)
	return out
}
