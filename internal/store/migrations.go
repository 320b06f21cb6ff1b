package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		instance    TEXT NOT NULL,
		scorer      TEXT NOT NULL,
		state       TEXT NOT NULL,
		makespan    INTEGER NOT NULL,
		diagnostic  TEXT NOT NULL DEFAULT '',
		ticks       INTEGER NOT NULL DEFAULT 0,
		jobs        INTEGER NOT NULL DEFAULT 0,
		cancelled   TEXT NOT NULL DEFAULT '[]',
		metrics     TEXT NOT NULL DEFAULT '{}',
		schedule    TEXT NOT NULL DEFAULT '[]',
		elapsed_ns  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_instance ON runs(instance)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
