package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/qrinout/server/internal/qrinout/service"
	"github.com/qrinout/server/internal/qrinout/store"
	"github.com/qrinout/server/internal/qrinout/store/memory"
)

func newDirectoryFixture() *service.GuestDirectory {
	return service.NewGuestDirectory(memory.NewGuestStore(), memory.NewSettingsStore())
}

func TestDirectory_RegisterAndVerify(t *testing.T) {
	d := newDirectoryFixture()
	ctx := context.Background()

	g, err := d.Register(ctx, store.Guest{Name: "Alice Kim", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected generated guest id")
	}

	// Identity match is case-insensitive and trims whitespace.
	found, err := d.Verify(ctx, "  alice kim ", "ALICE@Example.COM")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if found.ID != g.ID {
		t.Errorf("resolved %q, want %q", found.ID, g.ID)
	}
}

func TestDirectory_RegisterDefaultsTimezone(t *testing.T) {
	guests := memory.NewGuestStore()
	settings := memory.NewSettingsStore()
	d := service.NewGuestDirectory(guests, settings)
	ctx := context.Background()

	custom := store.DefaultSettings()
	custom.DefaultGuestTimezone = "America/Chicago"
	if err := settings.SaveSettings(ctx, custom); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	g, err := d.Register(ctx, store.Guest{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if g.Timezone != "America/Chicago" {
		t.Errorf("timezone = %q, want the configured default", g.Timezone)
	}

	// An explicit timezone is never overridden.
	g2, err := d.Register(ctx, store.Guest{Name: "Bob", Email: "bob@example.com", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if g2.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", g2.Timezone)
	}
}

func TestDirectory_VerifyUnknown(t *testing.T) {
	d := newDirectoryFixture()

	_, err := d.Verify(context.Background(), "Nobody", "nobody@example.com")
	if !errors.Is(err, service.ErrGuestNotFound) {
		t.Fatalf("err = %v, want ErrGuestNotFound", err)
	}
}

func TestDirectory_RejectsInvalidEmail(t *testing.T) {
	d := newDirectoryFixture()

	for _, email := range []string{"", "nope", "a@b", "spaces in@example.com"} {
		_, err := d.Register(context.Background(), store.Guest{Name: "X", Email: email})
		if !errors.Is(err, service.ErrInvalidEmail) {
			t.Errorf("Register(%q) err = %v, want ErrInvalidEmail", email, err)
		}
	}
}

func TestDirectory_DuplicateEmail(t *testing.T) {
	d := newDirectoryFixture()
	ctx := context.Background()

	if _, err := d.Register(ctx, store.Guest{Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := d.Register(ctx, store.Guest{Name: "Alicia", Email: "Alice@Example.com"})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestDirectory_RemovedGuestNotResolvable(t *testing.T) {
	d := newDirectoryFixture()
	ctx := context.Background()

	g, err := d.Register(ctx, store.Guest{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Remove(ctx, g.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := d.Verify(ctx, "Alice", "alice@example.com"); !errors.Is(err, service.ErrGuestNotFound) {
		t.Errorf("Verify after removal err = %v, want ErrGuestNotFound", err)
	}
	if _, err := d.Lookup(ctx, g.ID); !errors.Is(err, service.ErrGuestNotFound) {
		t.Errorf("Lookup after removal err = %v, want ErrGuestNotFound", err)
	}

	// Removal frees the email for a new registration.
	if _, err := d.Register(ctx, store.Guest{Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Errorf("re-register after removal: %v", err)
	}
}
