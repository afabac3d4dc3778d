package store

import (
	"context"
	"time"

	"github.com/qrinout/server/internal/qrinout/policy"
)

// Guest is an identity permitted to attempt passage at zero or more
// checkpoints.
type Guest struct {
	ID    string
	Name  string
	Email string
	Phone string

	// Timezone is the guest's home IANA timezone.
	Timezone string

	// Hours optionally restricts the guest further than checkpoint hours;
	// it never widens them. Nil means no personal restriction.
	Hours *policy.Window

	// AllowedCheckpoints is informational: scan authorization consults the
	// checkpoint's own allowed-guest set, not this list.
	AllowedCheckpoints []string

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the guest may still be used for scans.
func (g Guest) Active() bool { return g.DeletedAt == nil }

type GuestStore interface {
	GetGuest(ctx context.Context, id string) (Guest, error)
	ListActiveGuests(ctx context.Context) ([]Guest, error)

	// FindActiveGuestByIdentity matches name and email case-insensitively
	// against active guests. ErrNotFound when no match.
	FindActiveGuestByIdentity(ctx context.Context, name, email string) (Guest, error)

	// AddGuest rejects emails already used by an active guest with
	// ErrDuplicateEmail.
	AddGuest(ctx context.Context, g Guest) error
	UpdateGuest(ctx context.Context, g Guest) error
	SoftDeleteGuest(ctx context.Context, id string, at time.Time) error
}
