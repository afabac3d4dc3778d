package store

import (
	"context"
	"time"
)

// Settings is the singleton operator configuration.
type Settings struct {
	// AdminTimezone drives the display surface's clock and hours checks.
	AdminTimezone string

	// DefaultGuestTimezone is applied to guests registered without one.
	DefaultGuestTimezone string

	// RefreshInterval is how long a renewing token stays valid, in seconds.
	RefreshInterval int

	// RequireTimeSync records the operator's policy on untrusted clocks.
	// The authorizer itself does not enforce it; callers may.
	RequireTimeSync bool

	UpdatedAt time.Time
}

// DefaultSettings mirrors the values a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		AdminTimezone:        "Asia/Seoul",
		DefaultGuestTimezone: "Asia/Seoul",
		RefreshInterval:      1800,
		RequireTimeSync:      true,
	}
}

type SettingsStore interface {
	// LoadSettings returns the singleton, creating defaults when absent.
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}
