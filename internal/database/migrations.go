package database

import (
	"context"
	"fmt"
)

// migrations run in order inside one transaction; each statement is idempotent
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS event_decisions (
		seq         BIGSERIAL PRIMARY KEY,
		owner       TEXT        NOT NULL,
		event_id    TEXT        NOT NULL,
		event       JSONB       NOT NULL,
		decision    TEXT        NOT NULL CHECK (decision IN ('declined', 'maybe', 'maybe-declined')),
		comment     TEXT        NOT NULL DEFAULT '',
		excuse      TEXT        NOT NULL DEFAULT '',
		decided_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_decisions_owner_seq ON event_decisions (owner, seq)`,
	`CREATE TABLE IF NOT EXISTS decision_stats (
		owner           TEXT        PRIMARY KEY,
		declined        INTEGER     NOT NULL DEFAULT 0,
		maybe           INTEGER     NOT NULL DEFAULT 0,
		maybe_declined  INTEGER     NOT NULL DEFAULT 0,
		last_decided_at TIMESTAMPTZ,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the schema if it does not exist
func Migrate(ctx context.Context, db *DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
