package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/qrinout/server/internal/db"
	"github.com/qrinout/server/internal/qrinout/store"
	"github.com/qrinout/server/internal/qrinout/token"
)

type CheckpointStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCheckpointStore(db *sql.DB, writer *dbpkg.Worker) *CheckpointStore {
	return &CheckpointStore{db: db, writer: writer}
}

const checkpointColumns = `
id, name, location, hours_start, hours_end, mode, secret_hash,
allowed_guests, sequence, deleted_at_ms, created_at_ms, updated_at_ms`

func scanCheckpoint(row interface{ Scan(...any) error }) (store.Checkpoint, error) {
	var (
		cp          store.Checkpoint
		mode        string
		hoursStart  sql.NullString
		hoursEnd    sql.NullString
		guestsJSON  string
		deletedMs   sql.NullInt64
		createdMs   int64
		updatedMs   int64
	)

	err := row.Scan(
		&cp.ID, &cp.Name, &cp.Location, &hoursStart, &hoursEnd, &mode,
		&cp.SecretHash, &guestsJSON, &cp.Sequence, &deletedMs, &createdMs, &updatedMs,
	)
	if err != nil {
		return store.Checkpoint{}, err
	}

	cp.Mode = token.Mode(mode)
	cp.Hours = windowFromColumns(hoursStart, hoursEnd)
	cp.AllowedGuests, err = decodeIDs(guestsJSON)
	if err != nil {
		return store.Checkpoint{}, err
	}
	cp.DeletedAt = nullMsToTime(deletedMs)
	cp.CreatedAt = msToTime(createdMs)
	cp.UpdatedAt = msToTime(updatedMs)
	return cp, nil
}

func (s *CheckpointStore) GetCheckpoint(ctx context.Context, id string) (store.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE id = ?;`, id)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return store.Checkpoint{}, store.ErrNotFound
	}
	if err != nil {
		return store.Checkpoint{}, fmt.Errorf("GetCheckpoint %s: %w", id, err)
	}
	return cp, nil
}

func (s *CheckpointStore) ListActiveCheckpoints(ctx context.Context) ([]store.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE deleted_at_ms IS NULL ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("ListActiveCheckpoints query: %w", err)
	}
	defer rows.Close()

	var out []store.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveCheckpoints scan: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *CheckpointStore) AddCheckpoint(ctx context.Context, cp store.Checkpoint) error {
	guestsJSON, err := encodeIDs(cp.AllowedGuests)
	if err != nil {
		return err
	}
	hoursStart, hoursEnd := windowColumns(cp.Hours)

	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM checkpoints
WHERE deleted_at_ms IS NULL AND name = ? COLLATE NOCASE;`, cp.Name).Scan(&n)
		if err != nil {
			return fmt.Errorf("AddCheckpoint name check: %w", err)
		}
		if n > 0 {
			return store.ErrDuplicateName
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO checkpoints(
  id, name, location, hours_start, hours_end, mode, secret_hash,
  allowed_guests, sequence, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			cp.ID, cp.Name, cp.Location, hoursStart, hoursEnd, string(cp.Mode),
			cp.SecretHash, guestsJSON, cp.Sequence,
			cp.CreatedAt.UnixMilli(), cp.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("AddCheckpoint insert: %w", err)
		}
		return nil
	})
}

func (s *CheckpointStore) UpdateCheckpoint(ctx context.Context, cp store.Checkpoint) error {
	guestsJSON, err := encodeIDs(cp.AllowedGuests)
	if err != nil {
		return err
	}
	hoursStart, hoursEnd := windowColumns(cp.Hours)
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE checkpoints
SET name = ?, location = ?, hours_start = ?, hours_end = ?, mode = ?,
    secret_hash = ?, allowed_guests = ?, updated_at_ms = ?
WHERE id = ?;`,
			cp.Name, cp.Location, hoursStart, hoursEnd, string(cp.Mode),
			cp.SecretHash, guestsJSON, nowMs, cp.ID,
		)
		if err != nil {
			return fmt.Errorf("UpdateCheckpoint %s: %w", cp.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("UpdateCheckpoint rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *CheckpointStore) SoftDeleteCheckpoint(ctx context.Context, id string, at time.Time) error {
	ms := at.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE checkpoints SET deleted_at_ms = ?, updated_at_ms = ? WHERE id = ?;`, ms, ms, id)
		if err != nil {
			return fmt.Errorf("SoftDeleteCheckpoint %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("SoftDeleteCheckpoint rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// IncrementSequence advances the counter inside a writer transaction. The
// transaction commit is the durability point; the new value is only
// returned (and therefore only ever displayed) after it.
func (s *CheckpointStore) IncrementSequence(ctx context.Context, id string) (int64, error) {
	var seq int64

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
UPDATE checkpoints
SET sequence = sequence + 1, updated_at_ms = ?
WHERE id = ? AND deleted_at_ms IS NULL
RETURNING sequence;`, time.Now().UTC().UnixMilli(), id).Scan(&seq)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("IncrementSequence %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}
