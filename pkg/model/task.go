package model

import (
	"strings"
	"time"
)

// TaskID uniquely identifies a registered task. IDs are assigned by the
// registry in registration order and are never reused within a run.
type TaskID int64

// Criticality classifies how essential a task's timely completion is.
type Criticality string

const (
	// CriticalityHard tasks must never miss a deadline. They bypass
	// admission control entirely.
	CriticalityHard Criticality = "HARD"
	// CriticalityFirm tasks should complete when run but may be released
	// at reduced frequency under overload.
	CriticalityFirm Criticality = "FIRM"
	// CriticalitySoft tasks may be shed outright under overload.
	CriticalitySoft Criticality = "SOFT"
)

// String returns the string representation of the criticality level.
func (c Criticality) String() string {
	return string(c)
}

// Valid returns true if c is a recognized criticality level.
func (c Criticality) Valid() bool {
	switch c {
	case CriticalityHard, CriticalityFirm, CriticalitySoft:
		return true
	}
	return false
}

// ParseCriticality parses a criticality level, accepting any casing.
func ParseCriticality(s string) (Criticality, error) {
	c := Criticality(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &InvalidTaskError{Field: "criticality", Reason: "must be one of HARD, FIRM, SOFT"}
	}
	return c, nil
}

// SchedulerMode selects the scheduling discipline.
type SchedulerMode string

const (
	// ModeRMS runs pure rate-monotonic scheduling with the admission gate open.
	ModeRMS SchedulerMode = "RMS"
	// ModeEDF runs pure earliest-deadline-first with the admission gate open.
	ModeEDF SchedulerMode = "EDF"
	// ModeMixedCriticality runs rate-monotonic ordering with active
	// load-based admission control for FIRM and SOFT tasks.
	ModeMixedCriticality SchedulerMode = "MIXED_CRITICALITY"
)

// String returns the string representation of the scheduler mode.
func (m SchedulerMode) String() string {
	return string(m)
}

// Valid returns true if m is a recognized scheduler mode.
func (m SchedulerMode) Valid() bool {
	switch m {
	case ModeRMS, ModeEDF, ModeMixedCriticality:
		return true
	}
	return false
}

// ParseSchedulerMode parses a scheduler mode, accepting any casing.
func ParseSchedulerMode(s string) (SchedulerMode, error) {
	m := SchedulerMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", &InvalidTaskError{Field: "scheduler", Reason: "must be one of RMS, EDF, MIXED_CRITICALITY"}
	}
	return m, nil
}

// Outcome is the result of one execution slice of a Runnable.
type Outcome string

const (
	// OutcomeCompleted means the work for the current release finished
	// within the granted budget.
	OutcomeCompleted Outcome = "COMPLETED"
	// OutcomePartial means the work consumed the granted budget and
	// needs more time.
	OutcomePartial Outcome = "PARTIAL"
)

// Runnable is the capability contract for task work. The engine calls
// Execute once per scheduled tick with the time budget for that slice;
// implementations report whether the current release's work is done.
type Runnable interface {
	Execute(budget time.Duration) Outcome
}

// RunnableFunc adapts a plain function to the Runnable interface.
type RunnableFunc func(budget time.Duration) Outcome

// Execute calls f(budget).
func (f RunnableFunc) Execute(budget time.Duration) Outcome {
	return f(budget)
}

// Resettable is an optional Runnable upgrade. The registry resets a
// resettable workload at each periodic release, so per-release progress
// starts clean even when the previous instance was shed or truncated.
type Resettable interface {
	Reset()
}

// TaskParams are the static parameters supplied at registration.
type TaskParams struct {
	Name        string        `json:"name"`
	Period      time.Duration `json:"period"`
	Deadline    time.Duration `json:"deadline"`
	WCET        time.Duration `json:"wcet"`
	Criticality Criticality   `json:"criticality"`

	// Phase delays the first release; zero releases at logical time zero.
	Phase time.Duration `json:"phase,omitempty"`
}

// Validate checks the registration invariants. The tick granularity is
// required because the discrete model only releases tasks on tick
// boundaries; periods and budgets must land exactly on them.
func (p TaskParams) Validate(granularity time.Duration) error {
	if p.Name == "" {
		return &InvalidTaskError{Task: p.Name, Field: "name", Reason: "must not be empty"}
	}
	if p.Period <= 0 {
		return &InvalidTaskError{Task: p.Name, Field: "period", Reason: "must be positive"}
	}
	if p.Deadline <= 0 {
		return &InvalidTaskError{Task: p.Name, Field: "deadline", Reason: "must be positive"}
	}
	if p.WCET <= 0 {
		return &InvalidTaskError{Task: p.Name, Field: "wcet", Reason: "must be positive"}
	}
	if p.WCET > p.Deadline {
		return &InvalidTaskError{Task: p.Name, Field: "wcet", Reason: "must not exceed the relative deadline"}
	}
	if !p.Criticality.Valid() {
		return &InvalidTaskError{Task: p.Name, Field: "criticality", Reason: "must be one of HARD, FIRM, SOFT"}
	}
	if p.Phase < 0 {
		return &InvalidTaskError{Task: p.Name, Field: "phase", Reason: "must not be negative"}
	}
	if granularity > 0 {
		if p.Period%granularity != 0 {
			return &InvalidTaskError{Task: p.Name, Field: "period", Reason: "must be a multiple of the tick granularity"}
		}
		if p.Deadline%granularity != 0 {
			return &InvalidTaskError{Task: p.Name, Field: "deadline", Reason: "must be a multiple of the tick granularity"}
		}
		if p.WCET%granularity != 0 {
			return &InvalidTaskError{Task: p.Name, Field: "wcet", Reason: "must be a multiple of the tick granularity"}
		}
		if p.Phase%granularity != 0 {
			return &InvalidTaskError{Task: p.Name, Field: "phase", Reason: "must be a multiple of the tick granularity"}
		}
	}
	return nil
}

// Task is a schedulable periodic unit of work. Static parameters are
// immutable after registration; the runtime fields below them are
// mutated only by the execution engine within a tick.
type Task struct {
	ID          TaskID        `json:"id"`
	Name        string        `json:"name"`
	Period      time.Duration `json:"period"`
	Deadline    time.Duration `json:"deadline"`
	WCET        time.Duration `json:"wcet"`
	Criticality Criticality   `json:"criticality"`

	// Phase is the logical time of the task's first release. Tasks
	// registered before the run starts have phase zero.
	Phase time.Duration `json:"phase"`

	State            TaskState     `json:"state"`
	LastRelease      time.Duration `json:"last_release"`
	AbsoluteDeadline time.Duration `json:"absolute_deadline"`

	// Remaining is the unexecuted WCET budget of the current release.
	Remaining time.Duration `json:"remaining"`
	// Shed marks the current release as rejected by admission control.
	// A shed release stays READY until its deadline passes.
	Shed bool `json:"shed"`

	Releases    int64         `json:"releases"`
	Completions int64         `json:"completions"`
	Misses      int64         `json:"misses"`
	Skips       int64         `json:"skips"`
	Overruns    int64         `json:"overruns"`
	ResponseSum time.Duration `json:"response_sum"`
	ResponseMax time.Duration `json:"response_max"`

	Work Runnable `json:"-"`
}

// Utilization returns the task's WCET/Period fraction.
func (t *Task) Utilization() float64 {
	if t.Period <= 0 {
		return 0
	}
	return float64(t.WCET) / float64(t.Period)
}

// Transition moves the task to next, enforcing the state machine.
func (t *Task) Transition(next TaskState) error {
	if !t.State.CanTransitionTo(next) {
		return &InvalidTransitionError{Task: t.Name, From: t.State, To: next}
	}
	t.State = next
	return nil
}

// Info returns a copy of the task's static parameters.
func (t *Task) Info() TaskInfo {
	return TaskInfo{
		ID:          t.ID,
		Name:        t.Name,
		Period:      t.Period,
		Deadline:    t.Deadline,
		WCET:        t.WCET,
		Criticality: t.Criticality,
	}
}
