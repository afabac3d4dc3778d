package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/qrinout/server/internal/qrinout/store"
)

type GuestStore struct {
	mu   sync.RWMutex
	data map[string]store.Guest
}

func NewGuestStore() *GuestStore {
	return &GuestStore{data: make(map[string]store.Guest)}
}

func (s *GuestStore) GetGuest(_ context.Context, id string) (store.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.data[id]
	if !ok {
		return store.Guest{}, store.ErrNotFound
	}
	return g, nil
}

func (s *GuestStore) ListActiveGuests(_ context.Context) ([]store.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Guest
	for _, g := range s.data {
		if g.Active() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *GuestStore) FindActiveGuestByIdentity(_ context.Context, name, email string) (store.Guest, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.data {
		if g.Active() &&
			strings.EqualFold(strings.TrimSpace(g.Name), name) &&
			strings.EqualFold(strings.TrimSpace(g.Email), email) {
			return g, nil
		}
	}
	return store.Guest{}, store.ErrNotFound
}

func (s *GuestStore) AddGuest(_ context.Context, g store.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data {
		if existing.Active() && strings.EqualFold(existing.Email, g.Email) {
			return store.ErrDuplicateEmail
		}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.UpdatedAt = g.CreatedAt
	s.data[g.ID] = g
	return nil
}

func (s *GuestStore) UpdateGuest(_ context.Context, g store.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[g.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range s.data {
		if existing.ID != g.ID && existing.Active() && strings.EqualFold(existing.Email, g.Email) {
			return store.ErrDuplicateEmail
		}
	}
	g.UpdatedAt = time.Now().UTC()
	s.data[g.ID] = g
	return nil
}

func (s *GuestStore) SoftDeleteGuest(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.data[id]
	if !ok {
		return store.ErrNotFound
	}
	g.DeletedAt = &at
	g.UpdatedAt = at
	s.data[id] = g
	return nil
}
