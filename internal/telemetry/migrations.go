package telemetry

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the telemetry tables. Each statement uses
// IF NOT EXISTS for idempotency. Durations are stored as integer
// nanoseconds; structured payloads as JSON text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		scenario    TEXT NOT NULL,
		mode        TEXT NOT NULL,
		granularity INTEGER NOT NULL,
		ticks       INTEGER NOT NULL,
		tasks       TEXT NOT NULL,
		snapshot    TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tick_events (
		run_id  TEXT NOT NULL,
		tick    INTEGER NOT NULL,
		time_ns INTEGER NOT NULL,
		record  TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tick_events_run_time ON tick_events(run_id, time_ns)`,
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
