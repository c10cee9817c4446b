package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_sessions (
		id            TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		list_id       TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'draft',
		approved_at   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_sessions_approved
		ON inventory_sessions (restaurant_id, list_id, approved_at DESC)
		WHERE status = 'approved'`,
	`CREATE TABLE IF NOT EXISTS inventory_session_items (
		id             BIGSERIAL PRIMARY KEY,
		session_id     TEXT NOT NULL REFERENCES inventory_sessions(id) ON DELETE CASCADE,
		item_name      TEXT NOT NULL,
		stock_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		category       TEXT NOT NULL DEFAULT '',
		unit           TEXT NOT NULL DEFAULT '',
		par_level      DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_session_items_session
		ON inventory_session_items (session_id)`,
	`CREATE TABLE IF NOT EXISTS par_guides (
		id            TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		list_id       TEXT NOT NULL DEFAULT '',
		name          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS par_guide_items (
		id         TEXT PRIMARY KEY,
		guide_id   TEXT NOT NULL REFERENCES par_guides(id) ON DELETE CASCADE,
		item_name  TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		unit       TEXT NOT NULL DEFAULT '',
		par_level  DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_par_guide_items_name
		ON par_guide_items (guide_id, (lower(btrim(item_name))))`,
	`CREATE TABLE IF NOT EXISTS restaurant_members (
		restaurant_id TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		role          TEXT NOT NULL,
		PRIMARY KEY (restaurant_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notification_settings (
		restaurant_id     TEXT PRIMARY KEY,
		mode              TEXT NOT NULL DEFAULT 'OWNERS_MANAGERS',
		custom_recipients TEXT[] NOT NULL DEFAULT '{}',
		in_app_enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		timezone          TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS notification_records (
		restaurant_id TEXT NOT NULL,
		type          TEXT NOT NULL,
		notified_on   DATE NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (restaurant_id, type, notified_on)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id            BIGSERIAL PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		type          TEXT NOT NULL,
		title         TEXT NOT NULL,
		message       TEXT NOT NULL,
		severity      TEXT NOT NULL,
		payload       JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the tables the suggestion engine reads and writes.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		log.Info().Int("statements", len(schema)).Msg("schema up to date")
		return nil
	})
}
