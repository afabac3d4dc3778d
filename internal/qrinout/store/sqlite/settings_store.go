package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/qrinout/server/internal/db"
	"github.com/qrinout/server/internal/qrinout/store"
)

// settingsRowID pins the singleton row; the schema CHECK enforces it too.
const settingsRowID = "admin_settings"

type SettingsStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSettingsStore(db *sql.DB, writer *dbpkg.Worker) *SettingsStore {
	return &SettingsStore{db: db, writer: writer}
}

func (s *SettingsStore) LoadSettings(ctx context.Context) (store.Settings, error) {
	var (
		out       store.Settings
		timeSync  int
		updatedMs int64
	)

	err := s.db.QueryRowContext(ctx, `
SELECT admin_timezone, default_guest_timezone, refresh_interval_s,
       require_time_sync, updated_at_ms
FROM admin_settings WHERE id = ?;`, settingsRowID).Scan(
		&out.AdminTimezone, &out.DefaultGuestTimezone, &out.RefreshInterval,
		&timeSync, &updatedMs,
	)
	if err == sql.ErrNoRows {
		defaults := store.DefaultSettings()
		if err := s.SaveSettings(ctx, defaults); err != nil {
			return store.Settings{}, fmt.Errorf("LoadSettings seed defaults: %w", err)
		}
		return defaults, nil
	}
	if err != nil {
		return store.Settings{}, fmt.Errorf("LoadSettings: %w", err)
	}

	out.RequireTimeSync = timeSync != 0
	out.UpdatedAt = msToTime(updatedMs)
	return out, nil
}

func (s *SettingsStore) SaveSettings(ctx context.Context, set store.Settings) error {
	timeSync := 0
	if set.RequireTimeSync {
		timeSync = 1
	}
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO admin_settings(
  id, admin_timezone, default_guest_timezone, refresh_interval_s,
  require_time_sync, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  admin_timezone = excluded.admin_timezone,
  default_guest_timezone = excluded.default_guest_timezone,
  refresh_interval_s = excluded.refresh_interval_s,
  require_time_sync = excluded.require_time_sync,
  updated_at_ms = excluded.updated_at_ms;`,
			settingsRowID, set.AdminTimezone, set.DefaultGuestTimezone,
			set.RefreshInterval, timeSync, nowMs,
		); err != nil {
			return fmt.Errorf("SaveSettings upsert: %w", err)
		}
		return nil
	})
}
