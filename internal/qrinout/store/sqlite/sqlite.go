// Package sqlite implements the entity stores on modernc.org/sqlite.
// All writes funnel through the shared db.Worker so that load-modify-save
// cycles never interleave; reads go straight to the connection.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qrinout/server/internal/qrinout/policy"
)

// encodeIDs serializes an id list for a TEXT column.
func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode id list: %w", err)
	}
	return string(b), nil
}

func decodeIDs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("decode id list %q: %w", s, err)
	}
	return ids, nil
}

// windowColumns splits an optional window into its two nullable columns.
func windowColumns(w *policy.Window) (start, end any) {
	if w == nil {
		return nil, nil
	}
	return w.Start, w.End
}

func windowFromColumns(start, end sql.NullString) *policy.Window {
	if !start.Valid && !end.Valid {
		return nil
	}
	return &policy.Window{Start: start.String, End: end.String}
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMsToTime(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := msToTime(ms.Int64)
	return &t
}
