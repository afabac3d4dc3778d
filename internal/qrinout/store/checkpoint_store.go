package store

import (
	"context"
	"time"

	"github.com/qrinout/server/internal/qrinout/policy"
	"github.com/qrinout/server/internal/qrinout/token"
)

// Checkpoint is a physical access point with its own hours, authorization
// list and token mode.
type Checkpoint struct {
	ID       string
	Name     string
	Location string

	// Hours gates both the display surface and scans. Nil means no
	// restriction.
	Hours *policy.Window

	Mode token.Mode

	// SecretHash is the bcrypt hash of the display-device password. It is
	// unrelated to the token signing secret.
	SecretHash string

	// AllowedGuests is the authoritative authorization list. An empty set
	// means nobody may pass.
	AllowedGuests []string

	// Sequence is the renewing-token counter. It is non-decreasing and
	// advances only through IncrementSequence.
	Sequence int64

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the checkpoint accepts new scans.
func (c Checkpoint) Active() bool { return c.DeletedAt == nil }

// AllowsGuest reports membership in the authorization list.
func (c Checkpoint) AllowsGuest(guestID string) bool {
	for _, id := range c.AllowedGuests {
		if id == guestID {
			return true
		}
	}
	return false
}

type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, id string) (Checkpoint, error)
	ListActiveCheckpoints(ctx context.Context) ([]Checkpoint, error)

	// AddCheckpoint rejects names already used by an active checkpoint
	// with ErrDuplicateName.
	AddCheckpoint(ctx context.Context, cp Checkpoint) error
	UpdateCheckpoint(ctx context.Context, cp Checkpoint) error

	// SoftDeleteCheckpoint marks the checkpoint removed. The row and its
	// history persist; only new scans are refused.
	SoftDeleteCheckpoint(ctx context.Context, id string, at time.Time) error

	// IncrementSequence atomically advances the renewing-token counter by
	// exactly one and returns the new value. The write is durable before
	// this returns: it is the commit point of token issuance, so a crash
	// after it can waste a sequence number but never duplicate one.
	IncrementSequence(ctx context.Context, id string) (int64, error)
}
