package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qrinout/server/internal/qrinout/policy"
	"github.com/qrinout/server/internal/qrinout/store"
	"github.com/qrinout/server/internal/qrinout/timesource"
	"github.com/qrinout/server/internal/qrinout/token"
)

var ErrCheckpointRemoved = errors.New("checkpoint has been removed")

// Clock resolves the current wall time for a timezone.
// *timesource.Service satisfies it.
type Clock interface {
	Now(ctx context.Context, timezone string) timesource.Result
}

// IssuedToken is one renewing token currently on display for a checkpoint.
type IssuedToken struct {
	Text      string
	Sequence  int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	Interval  time.Duration
}

// DisplayState is everything a display surface needs to render: either
// "closed" with the hours message, or the current token with its countdown.
type DisplayState struct {
	Checkpoint   store.Checkpoint
	Open         bool
	HoursMessage string
	Mode         token.Mode
	Token        IssuedToken
	Countdown    time.Duration
}

// Issuer owns renewing-token rotation per checkpoint. The sequence counter
// is persisted through the store before a token is ever exposed, so a crash
// between increment and display can skip a number but never repeat one.
// Hours are evaluated on the admin-timezone clock, the same basis the scan
// authorizer uses, so display and scan always agree on open/closed.
type Issuer struct {
	checkpoints store.CheckpointStore
	settings    store.SettingsStore
	codec       *token.Codec
	clock       Clock
	logger      *zap.Logger

	mu     sync.Mutex
	issued map[string]IssuedToken
}

func NewIssuer(
	checkpoints store.CheckpointStore,
	settings store.SettingsStore,
	codec *token.Codec,
	clock Clock,
	logger *zap.Logger,
) *Issuer {
	return &Issuer{
		checkpoints: checkpoints,
		settings:    settings,
		codec:       codec,
		clock:       clock,
		logger:      logger,
		issued:      make(map[string]IssuedToken),
	}
}

// Display resolves the current display state for an authenticated
// checkpoint. Outside operating hours no token is produced.
func (i *Issuer) Display(ctx context.Context, checkpointID string) (DisplayState, error) {
	cp, err := i.checkpoints.GetCheckpoint(ctx, checkpointID)
	if err != nil {
		return DisplayState{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if !cp.Active() {
		return DisplayState{}, ErrCheckpointRemoved
	}

	settings, err := i.settings.LoadSettings(ctx)
	if err != nil {
		return DisplayState{}, fmt.Errorf("load settings: %w", err)
	}
	now := i.clock.Now(ctx, settings.AdminTimezone).Time

	open, msg := policy.WithinHours(now, cp.Hours)
	state := DisplayState{Checkpoint: cp, Open: open, HoursMessage: msg, Mode: cp.Mode}
	if !open {
		return state, nil
	}

	if cp.Mode == token.ModeStatic {
		text, err := i.codec.MintStatic(cp.ID, now)
		if err != nil {
			return DisplayState{}, err
		}
		state.Token = IssuedToken{Text: text}
		return state, nil
	}

	cur, err := i.currentRenewing(ctx, cp, now, settings)
	if err != nil {
		return DisplayState{}, err
	}
	state.Token = cur
	state.Countdown = cur.ExpiresAt.Sub(now)
	return state, nil
}

// currentRenewing returns the cached token while it is still valid, and
// rotates otherwise. Rotation increments the durable sequence counter first
// and only then mints the new payload.
func (i *Issuer) currentRenewing(ctx context.Context, cp store.Checkpoint, now time.Time, settings store.Settings) (IssuedToken, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if cur, ok := i.issued[cp.ID]; ok && now.Before(cur.ExpiresAt) {
		return cur, nil
	}

	interval := time.Duration(settings.RefreshInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	seq, err := i.checkpoints.IncrementSequence(ctx, cp.ID)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("advance sequence: %w", err)
	}

	issuedAt := now
	expiresAt := now.Add(interval)
	text, err := i.codec.MintRenewing(cp.ID, seq, issuedAt, expiresAt, interval)
	if err != nil {
		return IssuedToken{}, err
	}

	cur := IssuedToken{
		Text:      text,
		Sequence:  seq,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Interval:  interval,
	}
	i.issued[cp.ID] = cur

	i.logger.Info("issued renewing token",
		zap.String("checkpoint_id", cp.ID),
		zap.Int64("sequence", seq),
		zap.Time("expires_at", expiresAt))

	return cur, nil
}
