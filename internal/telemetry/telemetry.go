// Package telemetry persists finished simulation runs: run metadata,
// the task table, the final aggregates, and the full tick event log.
// Stored logs feed the replay command, which recomputes aggregates from
// raw events and checks them against the stored snapshot.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/me/mcsched/pkg/model"
)

// Run is one persisted simulation run.
type Run struct {
	ID          string                `json:"id"`
	Scenario    string                `json:"scenario"`
	Mode        model.SchedulerMode   `json:"mode"`
	Granularity time.Duration         `json:"granularity"`
	Ticks       int64                 `json:"ticks"`
	Tasks       []model.TaskInfo      `json:"tasks"`
	Snapshot    model.MetricsSnapshot `json:"snapshot"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// NewRunID returns a fresh short run identifier.
func NewRunID() string {
	return "run_" + uuid.New().String()[:8]
}

// Store defines the persistence layer for runs and their event logs.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	AppendRecords(ctx context.Context, runID string, records []model.TickRecord) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	RecordsSince(ctx context.Context, runID string, since time.Duration) ([]model.TickRecord, error)

	Close() error
	Migrate(ctx context.Context) error
}
