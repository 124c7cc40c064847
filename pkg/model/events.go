package model

import "time"

// TickOutcome summarizes what the engine did during one tick.
type TickOutcome string

const (
	// TickRan means an admitted task executed a slice this tick.
	TickRan TickOutcome = "RAN"
	// TickSkipped means work was ready but every candidate was shed by
	// admission control, so nothing executed.
	TickSkipped TickOutcome = "SKIPPED"
	// TickMissed means nothing executed and at least one deadline miss
	// was recorded this tick.
	TickMissed TickOutcome = "MISSED"
	// TickIdle means no task was ready.
	TickIdle TickOutcome = "IDLE"
)

// String returns the string representation of the tick outcome.
func (o TickOutcome) String() string {
	return string(o)
}

// MissReason classifies why a release instance missed its deadline.
type MissReason string

const (
	// MissExpired: the deadline passed while the instance was still
	// waiting or running.
	MissExpired MissReason = "EXPIRED"
	// MissSuperseded: the next periodic release arrived before the
	// instance completed.
	MissSuperseded MissReason = "SUPERSEDED"
	// MissOverrun: the instance exhausted its WCET budget without
	// completing and was truncated.
	MissOverrun MissReason = "OVERRUN"
	// MissLate: the instance completed after its deadline.
	MissLate MissReason = "LATE"
)

// Release records one periodic release of a task.
type Release struct {
	Task             TaskID        `json:"task"`
	Time             time.Duration `json:"time"`
	AbsoluteDeadline time.Duration `json:"absolute_deadline"`
}

// Completion records a release instance finishing within its deadline.
type Completion struct {
	Task     TaskID        `json:"task"`
	Release  time.Duration `json:"release"`
	Time     time.Duration `json:"time"`
	Response time.Duration `json:"response"`
}

// Miss records a classified deadline miss. A HARD miss signals a
// scheduling or admission defect and is surfaced loudly by consumers.
type Miss struct {
	Task        TaskID        `json:"task"`
	Criticality Criticality   `json:"criticality"`
	Reason      MissReason    `json:"reason"`
	Release     time.Duration `json:"release"`
	Deadline    time.Duration `json:"deadline"`
	Time        time.Duration `json:"time"`
}

// Skip records a voluntary shed of one release by admission control.
// A skip is not a miss; the miss, if any, is recorded separately when
// the shed release's deadline passes.
type Skip struct {
	Task        TaskID        `json:"task"`
	Criticality Criticality   `json:"criticality"`
	Release     time.Duration `json:"release"`
	Time        time.Duration `json:"time"`
}

// Overrun records an instance exceeding its declared WCET. The engine
// truncates the instance at the tick boundary; the run continues.
type Overrun struct {
	Task    TaskID        `json:"task"`
	Release time.Duration `json:"release"`
	Budget  time.Duration `json:"budget"`
	Time    time.Duration `json:"time"`
}

// TickRecord is the observable history of one discrete tick. The ordered
// sequence of tick records is the raw event log; every aggregate in a
// MetricsSnapshot is derivable from it.
type TickRecord struct {
	Tick int64         `json:"tick"`
	Time time.Duration `json:"time"`

	Released []Release `json:"released,omitempty"`
	Ready    []TaskID  `json:"ready,omitempty"`
	Selected TaskID    `json:"selected,omitempty"`

	Outcome TickOutcome `json:"outcome"`

	Completions []Completion `json:"completions,omitempty"`
	Misses      []Miss       `json:"misses,omitempty"`
	Skips       []Skip       `json:"skips,omitempty"`
	Overruns    []Overrun    `json:"overruns,omitempty"`

	// Load is the admission controller's utilization estimate after
	// this tick; Overloaded reflects its hysteresis latch.
	Load       float64 `json:"load"`
	Overloaded bool    `json:"overloaded,omitempty"`
}
