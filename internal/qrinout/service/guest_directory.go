package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qrinout/server/internal/qrinout/store"
)

var (
	ErrGuestNotFound = errors.New("guest not found")
	ErrInvalidEmail  = errors.New("invalid email address")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// GuestDirectory resolves and manages guest identities on top of the guest
// store. Settings supply the default timezone for new registrations.
type GuestDirectory struct {
	guests   store.GuestStore
	settings store.SettingsStore
}

func NewGuestDirectory(guests store.GuestStore, settings store.SettingsStore) *GuestDirectory {
	return &GuestDirectory{guests: guests, settings: settings}
}

// Verify identifies a guest by name and email, case-insensitively, among
// active guests.
func (d *GuestDirectory) Verify(ctx context.Context, name, email string) (store.Guest, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return store.Guest{}, ErrGuestNotFound
	}

	g, err := d.guests.FindActiveGuestByIdentity(ctx, name, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.Guest{}, ErrGuestNotFound
	}
	if err != nil {
		return store.Guest{}, fmt.Errorf("find guest: %w", err)
	}
	return g, nil
}

// Lookup fetches an active guest by id.
func (d *GuestDirectory) Lookup(ctx context.Context, id string) (store.Guest, error) {
	g, err := d.guests.GetGuest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Guest{}, ErrGuestNotFound
	}
	if err != nil {
		return store.Guest{}, fmt.Errorf("get guest: %w", err)
	}
	if !g.Active() {
		return store.Guest{}, ErrGuestNotFound
	}
	return g, nil
}

// Register adds a new guest after validating the email. A guest registered
// without a timezone picks up the operator's default.
func (d *GuestDirectory) Register(ctx context.Context, g store.Guest) (store.Guest, error) {
	g.Name = strings.TrimSpace(g.Name)
	g.Email = strings.TrimSpace(g.Email)
	if !emailPattern.MatchString(g.Email) {
		return store.Guest{}, ErrInvalidEmail
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Timezone == "" {
		settings, err := d.settings.LoadSettings(ctx)
		if err != nil {
			return store.Guest{}, fmt.Errorf("load settings: %w", err)
		}
		g.Timezone = settings.DefaultGuestTimezone
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	if err := d.guests.AddGuest(ctx, g); err != nil {
		return store.Guest{}, err
	}
	return g, nil
}

// Remove soft-deletes a guest; history referencing them is retained.
func (d *GuestDirectory) Remove(ctx context.Context, id string) error {
	err := d.guests.SoftDeleteGuest(ctx, id, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return ErrGuestNotFound
	}
	return err
}
