package sqlite_test

import (
	"context"
	"testing"

	"github.com/qrinout/server/internal/qrinout/store"
	sqlitestore "github.com/qrinout/server/internal/qrinout/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// LoadSettings — defaults on first read
// ═══════════════════════════════════════════════════════════════════════════

func TestSettingsStore_Load_SeedsDefaults(t *testing.T) {
	conn := openTestDB(t)
	ss := sqlitestore.NewSettingsStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	got, err := ss.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	want := store.DefaultSettings()
	if got.AdminTimezone != want.AdminTimezone ||
		got.DefaultGuestTimezone != want.DefaultGuestTimezone ||
		got.RefreshInterval != want.RefreshInterval ||
		got.RequireTimeSync != want.RequireTimeSync {
		t.Errorf("expected defaults %+v, got %+v", want, got)
	}

	// The defaults must now be durable.
	var count int
	err = conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_settings`).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 settings row, got %d", count)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// SaveSettings — upsert semantics
// ═══════════════════════════════════════════════════════════════════════════

func TestSettingsStore_Save_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	ss := sqlitestore.NewSettingsStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	in := store.Settings{
		AdminTimezone:        "America/Chicago",
		DefaultGuestTimezone: "UTC",
		RefreshInterval:      600,
		RequireTimeSync:      false,
	}
	if err := ss.SaveSettings(ctx, in); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := ss.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.AdminTimezone != "America/Chicago" || got.RefreshInterval != 600 || got.RequireTimeSync {
		t.Errorf("unexpected settings: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestSettingsStore_Save_OverwritesSingleton(t *testing.T) {
	conn := openTestDB(t)
	ss := sqlitestore.NewSettingsStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := ss.SaveSettings(ctx, store.DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings defaults: %v", err)
	}
	next := store.DefaultSettings()
	next.RefreshInterval = 120
	if err := ss.SaveSettings(ctx, next); err != nil {
		t.Fatalf("SaveSettings update: %v", err)
	}

	var count int
	err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_settings`).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected singleton row, got %d rows", count)
	}

	got, err := ss.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.RefreshInterval != 120 {
		t.Errorf("expected refresh interval 120, got %d", got.RefreshInterval)
	}
}
