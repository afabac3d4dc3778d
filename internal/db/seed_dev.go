package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a starter checkpoint pair and guest so a fresh dev
// environment has something to display and scan. The display password for
// both checkpoints is "password".
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	// bcrypt("password"), cost 10.
	const devSecretHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO checkpoints(
  id, name, location, hours_start, hours_end, mode, secret_hash,
  allowed_guests, sequence, created_at_ms, updated_at_ms
) VALUES
  ('cp_front', 'Front Gate', 'Building A', '09:00', '18:00', 'renewing', ?, '["guest_demo"]', 0, ?, ?),
  ('cp_side', 'Side Door', 'Building A', NULL, NULL, 'static', ?, '["guest_demo"]', 0, ?, ?);
`, devSecretHash, now, now, devSecretHash, now, now); err != nil {
		return fmt.Errorf("seed checkpoints: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO guests(
  id, name, email, phone, timezone, allowed_checkpoints, created_at_ms, updated_at_ms
) VALUES ('guest_demo', 'Demo Guest', 'demo@example.com', '', 'Asia/Seoul', '["cp_front","cp_side"]', ?, ?);
`, now, now); err != nil {
		return fmt.Errorf("seed guest: %w", err)
	}

	return nil
}
