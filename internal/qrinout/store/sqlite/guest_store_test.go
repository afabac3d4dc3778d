package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qrinout/server/internal/qrinout/policy"
	"github.com/qrinout/server/internal/qrinout/store"
	sqlitestore "github.com/qrinout/server/internal/qrinout/store/sqlite"
)

func testGuest(id, name, email string) store.Guest {
	return store.Guest{
		ID:                 id,
		Name:               name,
		Email:              email,
		Phone:              "010-1234-5678",
		Timezone:           "Asia/Seoul",
		AllowedCheckpoints: []string{"cp_1"},
		CreatedAt:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Add / Get round trip
// ═══════════════════════════════════════════════════════════════════════════

func TestGuestStore_AddGet_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	want := testGuest("g_1", "Jordan Kim", "jordan@example.com")
	want.Hours = &policy.Window{Start: "10:00", End: "16:00"}
	if err := gs.AddGuest(ctx, want); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	got, err := gs.GetGuest(ctx, "g_1")
	if err != nil {
		t.Fatalf("GetGuest: %v", err)
	}
	if got.Name != "Jordan Kim" || got.Email != "jordan@example.com" || got.Timezone != "Asia/Seoul" {
		t.Errorf("unexpected identity fields: %+v", got)
	}
	if got.Hours == nil || got.Hours.Start != "10:00" {
		t.Errorf("unexpected hours: %+v", got.Hours)
	}
	if len(got.AllowedCheckpoints) != 1 || got.AllowedCheckpoints[0] != "cp_1" {
		t.Errorf("unexpected allowed checkpoints: %v", got.AllowedCheckpoints)
	}
}

func TestGuestStore_Get_Missing(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))

	_, err := gs.GetGuest(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// FindActiveGuestByIdentity
// ═══════════════════════════════════════════════════════════════════════════

func TestGuestStore_FindByIdentity_CaseInsensitive(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := gs.AddGuest(ctx, testGuest("g_1", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	got, err := gs.FindActiveGuestByIdentity(ctx, "JORDAN KIM", "Jordan@Example.COM")
	if err != nil {
		t.Fatalf("FindActiveGuestByIdentity: %v", err)
	}
	if got.ID != "g_1" {
		t.Errorf("expected g_1, got %q", got.ID)
	}
}

func TestGuestStore_FindByIdentity_SkipsDeleted(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := gs.AddGuest(ctx, testGuest("g_1", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}
	if err := gs.SoftDeleteGuest(ctx, "g_1", time.Now()); err != nil {
		t.Fatalf("SoftDeleteGuest: %v", err)
	}

	_, err := gs.FindActiveGuestByIdentity(ctx, "Jordan Kim", "jordan@example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted guest, got %v", err)
	}
}

func TestGuestStore_FindByIdentity_RequiresBothFields(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := gs.AddGuest(ctx, testGuest("g_1", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	_, err := gs.FindActiveGuestByIdentity(ctx, "Jordan Kim", "other@example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on email mismatch, got %v", err)
	}
	_, err = gs.FindActiveGuestByIdentity(ctx, "Someone Else", "jordan@example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on name mismatch, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Email uniqueness among active rows
// ═══════════════════════════════════════════════════════════════════════════

func TestGuestStore_Add_DuplicateActiveEmail(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := gs.AddGuest(ctx, testGuest("g_1", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	err := gs.AddGuest(ctx, testGuest("g_2", "Other Person", "JORDAN@example.com"))
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGuestStore_Add_EmailFreedBySoftDelete(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := gs.AddGuest(ctx, testGuest("g_1", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}
	if err := gs.SoftDeleteGuest(ctx, "g_1", time.Now()); err != nil {
		t.Fatalf("SoftDeleteGuest: %v", err)
	}

	if err := gs.AddGuest(ctx, testGuest("g_2", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("expected reuse of soft-deleted email, got %v", err)
	}
}

func TestGuestStore_Update_DuplicateEmailBlocked(t *testing.T) {
	conn := openTestDB(t)
	gs := sqlitestore.NewGuestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := gs.AddGuest(ctx, testGuest("g_1", "Jordan Kim", "jordan@example.com")); err != nil {
		t.Fatalf("AddGuest g_1: %v", err)
	}
	g2 := testGuest("g_2", "Other Person", "other@example.com")
	if err := gs.AddGuest(ctx, g2); err != nil {
		t.Fatalf("AddGuest g_2: %v", err)
	}

	g2.Email = "jordan@example.com"
	err := gs.UpdateGuest(ctx, g2)
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// An update keeping its own email is not a clash.
	g2.Email = "other@example.com"
	g2.Phone = "010-9999-0000"
	if err := gs.UpdateGuest(ctx, g2); err != nil {
		t.Fatalf("UpdateGuest own email: %v", err)
	}
}
