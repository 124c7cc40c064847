package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/me/mcsched/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun() *Run {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Run{
		ID:          "run_test-1",
		Scenario:    "vehicle",
		Mode:        model.ModeMixedCriticality,
		Granularity: time.Millisecond,
		Ticks:       1000,
		Tasks: []model.TaskInfo{
			{ID: 1, Name: "control", Period: 5 * time.Millisecond, Deadline: 5 * time.Millisecond, WCET: time.Millisecond, Criticality: model.CriticalityHard},
			{ID: 2, Name: "perception", Period: 100 * time.Millisecond, Deadline: 100 * time.Millisecond, WCET: 8 * time.Millisecond, Criticality: model.CriticalitySoft},
		},
		Snapshot: model.MetricsSnapshot{
			Tick:         1000,
			Time:         time.Second,
			Mode:         model.ModeMixedCriticality,
			Utilization:  0.28,
			LoadEstimate: 0.25,
			Tasks: []model.TaskMetrics{
				{
					ID: 1, Name: "control", Criticality: model.CriticalityHard,
					Period: 5 * time.Millisecond, Deadline: 5 * time.Millisecond, WCET: time.Millisecond,
					Releases: 200, Completions: 200,
					ResponseSum: 200 * time.Millisecond, AvgResponse: time.Millisecond, MaxResponse: time.Millisecond,
				},
				{
					ID: 2, Name: "perception", Criticality: model.CriticalitySoft,
					Period: 100 * time.Millisecond, Deadline: 100 * time.Millisecond, WCET: 8 * time.Millisecond,
					Releases: 10, Completions: 10,
					ResponseSum: 120 * time.Millisecond, AvgResponse: 12 * time.Millisecond, MaxResponse: 15 * time.Millisecond,
				},
			},
		},
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
	}
}

func sampleRecords() []model.TickRecord {
	return []model.TickRecord{
		{
			Tick: 0,
			Time: 0,
			Released: []model.Release{
				{Task: 1, Time: 0, AbsoluteDeadline: 5 * time.Millisecond},
				{Task: 2, Time: 0, AbsoluteDeadline: 100 * time.Millisecond},
			},
			Ready:    []model.TaskID{1, 2},
			Selected: 1,
			Outcome:  model.TickRan,
			Completions: []model.Completion{
				{Task: 1, Release: 0, Time: time.Millisecond, Response: time.Millisecond},
			},
			Load: 0.5,
		},
		{
			Tick:     1,
			Time:     time.Millisecond,
			Ready:    []model.TaskID{2},
			Selected: 2,
			Outcome:  model.TickRan,
			Load:     0.5,
		},
		{
			Tick:    2,
			Time:    2 * time.Millisecond,
			Outcome: model.TickIdle,
			Load:    0.25,
		},
	}
}

// --- Migration tests ---

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	// A second migrate must not error.
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// --- Run tests ---

func TestSaveAndGetRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := sampleRun()

	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil run")
	}
	if got.ID != run.ID {
		t.Errorf("id = %q, want %q", got.ID, run.ID)
	}
	if got.Scenario != run.Scenario {
		t.Errorf("scenario = %q, want %q", got.Scenario, run.Scenario)
	}
	if got.Mode != model.ModeMixedCriticality {
		t.Errorf("mode = %q, want MIXED_CRITICALITY", got.Mode)
	}
	if got.Granularity != time.Millisecond {
		t.Errorf("granularity = %v, want 1ms", got.Granularity)
	}
	if got.Ticks != run.Ticks {
		t.Errorf("ticks = %d, want %d", got.Ticks, run.Ticks)
	}
	if !reflect.DeepEqual(got.Tasks, run.Tasks) {
		t.Errorf("tasks = %+v, want %+v", got.Tasks, run.Tasks)
	}
	if !reflect.DeepEqual(got.Snapshot, run.Snapshot) {
		t.Errorf("snapshot = %+v, want %+v", got.Snapshot, run.Snapshot)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("finished_at = %v, want %v", got.FinishedAt, run.FinishedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	st := testStore(t)
	got, err := st.GetRun(context.Background(), "run_nonexistent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSaveRun_DuplicateID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := sampleRun()

	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := st.SaveRun(ctx, run); err == nil {
		t.Error("expected error on duplicate run id")
	}
}

func TestListRuns(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	// Save 3 runs with staggered start times.
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		run := sampleRun()
		run.ID = fmt.Sprintf("run_test-%d", i)
		run.StartedAt = base.Add(time.Duration(i) * time.Second)
		run.FinishedAt = run.StartedAt.Add(time.Second)
		if err := st.SaveRun(ctx, run); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	// Newest first.
	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}
	if runs[0].ID != "run_test-2" {
		t.Errorf("first = %q, want run_test-2 (newest first)", runs[0].ID)
	}

	// Limit applies.
	runs, err = st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list limit 2: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("len = %d, want 2", len(runs))
	}

	// Non-positive limit falls back to the default.
	runs, err = st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list limit 0: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("len = %d, want 3", len(runs))
	}
}

func TestListRuns_Empty(t *testing.T) {
	st := testStore(t)
	runs, err := st.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("len = %d, want 0", len(runs))
	}
}

// --- Tick record tests ---

func TestAppendAndReadRecords(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := sampleRun()
	records := sampleRecords()

	if err := st.AppendRecords(ctx, run.ID, records); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := st.RecordsSince(ctx, run.ID, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("records = %+v, want %+v", got, records)
	}
}

func TestAppendRecords_Empty(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.AppendRecords(ctx, "run_test-1", nil); err != nil {
		t.Fatalf("append empty: %v", err)
	}
	got, err := st.RecordsSince(ctx, "run_test-1", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestRecordsSince_FiltersByTime(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	records := sampleRecords()

	if err := st.AppendRecords(ctx, "run_test-1", records); err != nil {
		t.Fatalf("append: %v", err)
	}

	// The since bound is inclusive.
	got, err := st.RecordsSince(ctx, "run_test-1", time.Millisecond)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Tick != 1 || got[1].Tick != 2 {
		t.Errorf("ticks = %d, %d, want 1, 2", got[0].Tick, got[1].Tick)
	}
}

func TestRecordsSince_UnknownRun(t *testing.T) {
	st := testStore(t)
	got, err := st.RecordsSince(context.Background(), "run_nonexistent", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestAppendRecords_KeepsRunsSeparate(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	records := sampleRecords()

	if err := st.AppendRecords(ctx, "run_a", records); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := st.AppendRecords(ctx, "run_b", records[:1]); err != nil {
		t.Fatalf("append b: %v", err)
	}

	got, err := st.RecordsSince(ctx, "run_b", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}
