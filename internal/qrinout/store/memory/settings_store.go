package memory

import (
	"context"
	"sync"
	"time"

	"github.com/qrinout/server/internal/qrinout/store"
)

type SettingsStore struct {
	mu       sync.Mutex
	settings *store.Settings
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

func (s *SettingsStore) LoadSettings(_ context.Context) (store.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		def := store.DefaultSettings()
		def.UpdatedAt = time.Now().UTC()
		s.settings = &def
	}
	return *s.settings, nil
}

func (s *SettingsStore) SaveSettings(_ context.Context, settings store.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	s.settings = &settings
	return nil
}
