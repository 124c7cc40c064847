package model

import "time"

// TaskInfo is an immutable copy of a task's static parameters, used by
// metrics recomputation and the telemetry store.
type TaskInfo struct {
	ID          TaskID        `json:"id"`
	Name        string        `json:"name"`
	Period      time.Duration `json:"period"`
	Deadline    time.Duration `json:"deadline"`
	WCET        time.Duration `json:"wcet"`
	Criticality Criticality   `json:"criticality"`
}

// Utilization returns the task's WCET/Period fraction.
func (i TaskInfo) Utilization() float64 {
	if i.Period <= 0 {
		return 0
	}
	return float64(i.WCET) / float64(i.Period)
}

// TaskMetrics is the per-task slice of a MetricsSnapshot.
type TaskMetrics struct {
	ID          TaskID        `json:"id"`
	Name        string        `json:"name"`
	Criticality Criticality   `json:"criticality"`
	Period      time.Duration `json:"period"`
	Deadline    time.Duration `json:"deadline"`
	WCET        time.Duration `json:"wcet"`

	Releases    int64 `json:"releases"`
	Completions int64 `json:"completions"`
	Misses      int64 `json:"misses"`
	Skips       int64 `json:"skips"`
	Overruns    int64 `json:"overruns"`

	// MissRate is Misses divided by Releases; zero before the first release.
	MissRate float64 `json:"miss_rate"`

	ResponseSum time.Duration `json:"response_sum"`
	AvgResponse time.Duration `json:"avg_response"`
	MaxResponse time.Duration `json:"max_response"`
}

// MetricsSnapshot is an immutable point-in-time aggregate of a run.
// Snapshots are value copies; holders never observe later mutations.
type MetricsSnapshot struct {
	Tick int64         `json:"tick"`
	Time time.Duration `json:"time"`
	Mode SchedulerMode `json:"mode"`

	// Utilization is the static feasibility proxy Σ(WCET/Period) over
	// registered tasks. LoadEstimate is the controller's measured EWMA.
	Utilization  float64 `json:"utilization"`
	LoadEstimate float64 `json:"load_estimate"`
	Overloaded   bool    `json:"overloaded"`

	// HardMisses counts deadline misses by HARD tasks across the run.
	// Any nonzero value is an anomaly.
	HardMisses int64 `json:"hard_misses"`

	// Tasks is sorted by ascending task id.
	Tasks []TaskMetrics `json:"tasks"`
}

// TaskByID returns the per-task metrics for id, if present.
func (s *MetricsSnapshot) TaskByID(id TaskID) (TaskMetrics, bool) {
	for _, tm := range s.Tasks {
		if tm.ID == id {
			return tm, true
		}
	}
	return TaskMetrics{}, false
}

// TaskByName returns the per-task metrics for the named task, if present.
func (s *MetricsSnapshot) TaskByName(name string) (TaskMetrics, bool) {
	for _, tm := range s.Tasks {
		if tm.Name == name {
			return tm, true
		}
	}
	return TaskMetrics{}, false
}
