package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/mcsched/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath. Use
// ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "telemetry"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// SaveRun inserts a finished run's metadata and final aggregates.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	tasksJSON, err := json.Marshal(run.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	snapshotJSON, err := json.Marshal(run.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, mode, granularity, ticks, tasks, snapshot, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Scenario, string(run.Mode), int64(run.Granularity), run.Ticks,
		string(tasksJSON), string(snapshotJSON),
		run.StartedAt.Format(time.RFC3339Nano), run.FinishedAt.Format(time.RFC3339Nano),
	)
	return err
}

// AppendRecords stores a batch of tick records for a run in one
// transaction.
func (s *SQLiteStore) AppendRecords(ctx context.Context, runID string, records []model.TickRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "insert", "table", "tick_events", "run", runID, "count", len(records))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tick_events (run_id, tick, time_ns, record) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		recordJSON, err := json.Marshal(&records[i])
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal record for tick %d: %w", records[i].Tick, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, records[i].Tick, int64(records[i].Time), string(recordJSON)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetRun returns the run for id, or nil if absent.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, mode, granularity, ticks, tasks, snapshot, started_at, finished_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns up to 50.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario, mode, granularity, ticks, tasks, snapshot, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// scanRun decodes one runs row from either QueryRow.Scan or Rows.Scan.
func scanRun(scan func(...any) error) (*Run, error) {
	var run Run
	var mode, tasksJSON, snapshotJSON, startedAt, finishedAt string
	var granularity int64

	if err := scan(&run.ID, &run.Scenario, &mode, &granularity, &run.Ticks,
		&tasksJSON, &snapshotJSON, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run.Mode = model.SchedulerMode(mode)
	run.Granularity = time.Duration(granularity)
	if err := json.Unmarshal([]byte(tasksJSON), &run.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshotJSON), &run.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
	return &run, nil
}

// RecordsSince reads a run's stored tick records with time >= since, in
// tick order.
func (s *SQLiteStore) RecordsSince(ctx context.Context, runID string, since time.Duration) ([]model.TickRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "tick_events", "run", runID, "since", since)

	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM tick_events WHERE run_id = ? AND time_ns >= ? ORDER BY tick`,
		runID, int64(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.TickRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, err
		}
		var rec model.TickRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
