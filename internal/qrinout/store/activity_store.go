package store

import (
	"context"
	"time"
)

// Action is the kind of passage a scan attempts.
type Action string

const (
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
)

// Valid reports whether a is one of the two known actions.
func (a Action) Valid() bool { return a == ActionCheckIn || a == ActionCheckOut }

// Status is a scan attempt's outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ActivityRecord is the immutable audit record of one scan attempt. Exactly
// one is written per attempt; records are never mutated or deleted.
type ActivityRecord struct {
	ID           string
	Timestamp    time.Time
	CheckpointID string
	GuestID      string
	Action       Action

	// TokenText is the raw scanned payload, kept verbatim for audit.
	TokenText string

	Status Status

	// FailureReason is the stable reason string; empty on success.
	FailureReason string

	Metadata map[string]string
}

type ActivityStore interface {
	// AppendActivity writes one record to the append-only log.
	AppendActivity(ctx context.Context, rec ActivityRecord) error

	// LastSuccess returns the most recent successful record for the guest
	// at the checkpoint, or ErrNotFound.
	LastSuccess(ctx context.Context, guestID, checkpointID string) (ActivityRecord, error)

	// ListRecentActivity returns up to limit records, newest first.
	ListRecentActivity(ctx context.Context, limit int) ([]ActivityRecord, error)
}
