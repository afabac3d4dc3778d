package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrinout/server/internal/qrinout/policy"
	"github.com/qrinout/server/internal/qrinout/store"
	"github.com/qrinout/server/internal/qrinout/token"
)

// Stable failure reasons, written to the activity log and returned to the
// scanning surface verbatim.
const (
	ReasonInvalidFormat          = "invalid_format"
	ReasonUnknownCheckpoint      = "unknown_checkpoint"
	ReasonCheckpointRemoved      = "checkpoint_removed"
	ReasonInvalidSignature       = "invalid_signature"
	ReasonTokenExpired           = "token_expired"
	ReasonStaleSequence          = "stale_sequence"
	ReasonNotAuthorized          = "not_authorized"
	ReasonOutsideCheckpointHours = "outside_checkpoint_hours"
	ReasonOutsideGuestHours      = "outside_guest_hours"
	ReasonNotCheckedIn           = "not_checked_in"
)

var ErrInvalidAction = errors.New("action must be check_in or check_out")

// ScanResult is the outcome of one authorization attempt. Rejections are
// normal results, not errors: an error from Authorize means the persistence
// layer failed, nothing else.
type ScanResult struct {
	Accepted bool
	Reason   string
}

// ScanService decides whether a scanned token grants the requested passage,
// and appends exactly one activity record per attempt regardless of outcome.
type ScanService struct {
	checkpoints store.CheckpointStore
	activity    store.ActivityStore
	codec       *token.Codec
	logger      *zap.Logger
}

func NewScanService(
	checkpoints store.CheckpointStore,
	activity store.ActivityStore,
	codec *token.Codec,
	logger *zap.Logger,
) *ScanService {
	return &ScanService{
		checkpoints: checkpoints,
		activity:    activity,
		codec:       codec,
		logger:      logger,
	}
}

// Authorize runs the checks in order, short-circuiting on the first failure.
// The guest must already be resolved and active; timeTrusted is recorded as
// context but never causes a rejection here — stricter handling of
// unsynchronized clocks belongs to the caller's settings layer.
func (s *ScanService) Authorize(
	ctx context.Context,
	tokenText string,
	guest store.Guest,
	action store.Action,
	now time.Time,
	timeTrusted bool,
) (ScanResult, error) {
	if !action.Valid() {
		return ScanResult{}, ErrInvalidAction
	}

	// 1. Parse. A payload we cannot decode still leaves an audit trail,
	// just without a checkpoint to attribute it to.
	tok, err := s.codec.Parse(tokenText)
	if err != nil {
		return s.reject(ctx, "", guest, action, tokenText, ReasonInvalidFormat, now, timeTrusted)
	}

	// 2. Resolve the checkpoint.
	cp, err := s.checkpoints.GetCheckpoint(ctx, tok.CheckpointID)
	if errors.Is(err, store.ErrNotFound) {
		return s.reject(ctx, tok.CheckpointID, guest, action, tokenText, ReasonUnknownCheckpoint, now, timeTrusted)
	}
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolve checkpoint: %w", err)
	}
	if !cp.Active() {
		return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonCheckpointRemoved, now, timeTrusted)
	}

	// 3. Renewing tokens must be authentic, fresh and current. A sequence
	// older than the checkpoint's counter is a replay of a superseded code.
	if tok.Mode == token.ModeRenewing {
		if !s.codec.VerifySignature(tok) {
			return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonInvalidSignature, now, timeTrusted)
		}
		if token.IsExpired(tok, now) {
			return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonTokenExpired, now, timeTrusted)
		}
		if tok.Sequence < cp.Sequence {
			return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonStaleSequence, now, timeTrusted)
		}
	}

	// 4. Authorization list. An empty set admits nobody.
	if !cp.AllowsGuest(guest.ID) {
		return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonNotAuthorized, now, timeTrusted)
	}

	// 5. Checkpoint operating hours.
	if ok, _ := policy.WithinHours(now, cp.Hours); !ok {
		return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonOutsideCheckpointHours, now, timeTrusted)
	}

	// 6. Guest personal hours, when configured.
	if ok, _ := policy.WithinHours(now, guest.Hours); !ok {
		return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonOutsideGuestHours, now, timeTrusted)
	}

	// 7. Check-out needs a matching prior check-in at this checkpoint.
	// Check-in has no precondition: a guest may check in repeatedly.
	if action == store.ActionCheckOut {
		last, err := s.activity.LastSuccess(ctx, guest.ID, cp.ID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && last.Action == store.ActionCheckOut) {
			return s.reject(ctx, cp.ID, guest, action, tokenText, ReasonNotCheckedIn, now, timeTrusted)
		}
		if err != nil {
			return ScanResult{}, fmt.Errorf("look up last activity: %w", err)
		}
	}

	s.record(ctx, cp.ID, guest, action, tokenText, store.StatusSuccess, "", now, timeTrusted)
	return ScanResult{Accepted: true}, nil
}

func (s *ScanService) reject(
	ctx context.Context,
	checkpointID string,
	guest store.Guest,
	action store.Action,
	tokenText, reason string,
	now time.Time,
	timeTrusted bool,
) (ScanResult, error) {
	s.record(ctx, checkpointID, guest, action, tokenText, store.StatusFailure, reason, now, timeTrusted)
	return ScanResult{Accepted: false, Reason: reason}, nil
}

// record appends the audit entry. A failed audit write is logged but does
// not change the decision the guest already received.
func (s *ScanService) record(
	ctx context.Context,
	checkpointID string,
	guest store.Guest,
	action store.Action,
	tokenText string,
	status store.Status,
	reason string,
	now time.Time,
	timeTrusted bool,
) {
	// The audit timestamp is the clock the decision was made against, not
	// a fresh local read, so trusted external time flows into the log.
	rec := store.ActivityRecord{
		ID:            uuid.NewString(),
		Timestamp:     now.UTC(),
		CheckpointID:  checkpointID,
		GuestID:       guest.ID,
		Action:        action,
		TokenText:     tokenText,
		Status:        status,
		FailureReason: reason,
		Metadata: map[string]string{
			"time_trusted": strconv.FormatBool(timeTrusted),
		},
	}

	if err := s.activity.AppendActivity(ctx, rec); err != nil {
		s.logger.Error("activity append failed",
			zap.String("checkpoint_id", checkpointID),
			zap.String("guest_id", guest.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
