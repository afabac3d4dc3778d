package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/qrinout/server/internal/db"
	"github.com/qrinout/server/internal/qrinout/store"
)

type GuestStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewGuestStore(db *sql.DB, writer *dbpkg.Worker) *GuestStore {
	return &GuestStore{db: db, writer: writer}
}

const guestColumns = `
id, name, email, phone, timezone, hours_start, hours_end,
allowed_checkpoints, deleted_at_ms, created_at_ms, updated_at_ms`

func scanGuest(row interface{ Scan(...any) error }) (store.Guest, error) {
	var (
		g          store.Guest
		hoursStart sql.NullString
		hoursEnd   sql.NullString
		cpsJSON    string
		deletedMs  sql.NullInt64
		createdMs  int64
		updatedMs  int64
	)

	err := row.Scan(
		&g.ID, &g.Name, &g.Email, &g.Phone, &g.Timezone, &hoursStart, &hoursEnd,
		&cpsJSON, &deletedMs, &createdMs, &updatedMs,
	)
	if err != nil {
		return store.Guest{}, err
	}

	g.Hours = windowFromColumns(hoursStart, hoursEnd)
	g.AllowedCheckpoints, err = decodeIDs(cpsJSON)
	if err != nil {
		return store.Guest{}, err
	}
	g.DeletedAt = nullMsToTime(deletedMs)
	g.CreatedAt = msToTime(createdMs)
	g.UpdatedAt = msToTime(updatedMs)
	return g, nil
}

func (s *GuestStore) GetGuest(ctx context.Context, id string) (store.Guest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = ?;`, id)

	g, err := scanGuest(row)
	if err == sql.ErrNoRows {
		return store.Guest{}, store.ErrNotFound
	}
	if err != nil {
		return store.Guest{}, fmt.Errorf("GetGuest %s: %w", id, err)
	}
	return g, nil
}

func (s *GuestStore) ListActiveGuests(ctx context.Context) ([]store.Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE deleted_at_ms IS NULL ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("ListActiveGuests query: %w", err)
	}
	defer rows.Close()

	var out []store.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveGuests scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *GuestStore) FindActiveGuestByIdentity(ctx context.Context, name, email string) (store.Guest, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+guestColumns+` FROM guests
WHERE deleted_at_ms IS NULL
  AND name = ? COLLATE NOCASE
  AND email = ? COLLATE NOCASE;`, name, email)

	g, err := scanGuest(row)
	if err == sql.ErrNoRows {
		return store.Guest{}, store.ErrNotFound
	}
	if err != nil {
		return store.Guest{}, fmt.Errorf("FindActiveGuestByIdentity: %w", err)
	}
	return g, nil
}

func (s *GuestStore) AddGuest(ctx context.Context, g store.Guest) error {
	cpsJSON, err := encodeIDs(g.AllowedCheckpoints)
	if err != nil {
		return err
	}
	hoursStart, hoursEnd := windowColumns(g.Hours)

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM guests
WHERE deleted_at_ms IS NULL AND email = ? COLLATE NOCASE;`, g.Email).Scan(&n)
		if err != nil {
			return fmt.Errorf("AddGuest email check: %w", err)
		}
		if n > 0 {
			return store.ErrDuplicateEmail
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO guests(
  id, name, email, phone, timezone, hours_start, hours_end,
  allowed_checkpoints, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			g.ID, g.Name, g.Email, g.Phone, g.Timezone, hoursStart, hoursEnd,
			cpsJSON, g.CreatedAt.UnixMilli(), g.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("AddGuest insert: %w", err)
		}
		return nil
	})
}

func (s *GuestStore) UpdateGuest(ctx context.Context, g store.Guest) error {
	cpsJSON, err := encodeIDs(g.AllowedCheckpoints)
	if err != nil {
		return err
	}
	hoursStart, hoursEnd := windowColumns(g.Hours)
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM guests
WHERE deleted_at_ms IS NULL AND email = ? COLLATE NOCASE AND id != ?;`,
			g.Email, g.ID).Scan(&n)
		if err != nil {
			return fmt.Errorf("UpdateGuest email check: %w", err)
		}
		if n > 0 {
			return store.ErrDuplicateEmail
		}

		res, err := tx.ExecContext(ctx, `
UPDATE guests
SET name = ?, email = ?, phone = ?, timezone = ?, hours_start = ?,
    hours_end = ?, allowed_checkpoints = ?, updated_at_ms = ?
WHERE id = ?;`,
			g.Name, g.Email, g.Phone, g.Timezone, hoursStart, hoursEnd,
			cpsJSON, nowMs, g.ID,
		)
		if err != nil {
			return fmt.Errorf("UpdateGuest %s: %w", g.ID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("UpdateGuest rows affected: %w", err)
		}
		if rows == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *GuestStore) SoftDeleteGuest(ctx context.Context, id string, at time.Time) error {
	ms := at.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE guests SET deleted_at_ms = ?, updated_at_ms = ? WHERE id = ?;`, ms, ms, id)
		if err != nil {
			return fmt.Errorf("SoftDeleteGuest %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("SoftDeleteGuest rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
