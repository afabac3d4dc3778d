package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	dbpkg "github.com/qrinout/server/internal/db"
	"github.com/qrinout/server/internal/qrinout/store"
)

type ActivityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewActivityStore(db *sql.DB, writer *dbpkg.Worker) *ActivityStore {
	return &ActivityStore{db: db, writer: writer}
}

const activityColumns = `
id, ts_ms, checkpoint_id, guest_id, action, token_text, status,
failure_reason, metadata`

func scanActivity(row interface{ Scan(...any) error }) (store.ActivityRecord, error) {
	var (
		rec      store.ActivityRecord
		tsMs     int64
		action   string
		status   string
		metaJSON string
	)

	err := row.Scan(
		&rec.ID, &tsMs, &rec.CheckpointID, &rec.GuestID, &action,
		&rec.TokenText, &status, &rec.FailureReason, &metaJSON,
	)
	if err != nil {
		return store.ActivityRecord{}, err
	}

	rec.Timestamp = msToTime(tsMs)
	rec.Action = store.Action(action)
	rec.Status = store.Status(status)
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return store.ActivityRecord{}, fmt.Errorf("decode metadata %q: %w", metaJSON, err)
		}
	}
	return rec, nil
}

func (s *ActivityStore) AppendActivity(ctx context.Context, rec store.ActivityRecord) error {
	metaJSON := "{}"
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("AppendActivity encode metadata: %w", err)
		}
		metaJSON = string(b)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO activity_logs(
  id, ts_ms, checkpoint_id, guest_id, action, token_text, status,
  failure_reason, metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			rec.ID, rec.Timestamp.UnixMilli(), rec.CheckpointID, rec.GuestID,
			string(rec.Action), rec.TokenText, string(rec.Status),
			rec.FailureReason, metaJSON,
		); err != nil {
			return fmt.Errorf("AppendActivity insert: %w", err)
		}
		return nil
	})
}

// LastSuccess orders by ts_ms with id as tiebreaker. Ids are random, so two
// successes for the same guest and checkpoint inside one millisecond would
// tie arbitrarily; the single-writer worker makes that ordering moot in
// practice.
func (s *ActivityStore) LastSuccess(ctx context.Context, guestID, checkpointID string) (store.ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+activityColumns+` FROM activity_logs
WHERE guest_id = ? AND checkpoint_id = ? AND status = 'success'
ORDER BY ts_ms DESC, id DESC
LIMIT 1;`, guestID, checkpointID)

	rec, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return store.ActivityRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.ActivityRecord{}, fmt.Errorf("LastSuccess: %w", err)
	}
	return rec, nil
}

func (s *ActivityStore) ListRecentActivity(ctx context.Context, limit int) ([]store.ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+activityColumns+` FROM activity_logs
ORDER BY ts_ms DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecentActivity query: %w", err)
	}
	defer rows.Close()

	var out []store.ActivityRecord
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecentActivity scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
