// Package workload provides Runnable implementations for simulated
// task work: fixed deterministic costs, scripted data-dependent costs,
// and runaway tasks that never finish. Scenarios bind these to
// registered tasks; they are equally usable directly in tests.
package workload

import (
	"time"

	"github.com/me/mcsched/pkg/model"
)

// Fixed models work with the same execution cost on every release.
// Progress accumulates across slices and is cleared at each release, so
// a cost below the declared WCET completes early and a cost above it
// overruns. The zero cost completes on the first slice.
type Fixed struct {
	cost     time.Duration
	progress time.Duration
}

// NewFixed returns a workload costing exactly cost per release.
func NewFixed(cost time.Duration) *Fixed {
	return &Fixed{cost: cost}
}

// Execute consumes budget toward the current release's cost.
func (f *Fixed) Execute(budget time.Duration) model.Outcome {
	f.progress += budget
	if f.progress >= f.cost {
		return model.OutcomeCompleted
	}
	return model.OutcomePartial
}

// Reset clears accumulated progress for a new release.
func (f *Fixed) Reset() {
	f.progress = 0
}

// Busy models a runaway task: every slice consumes its full budget and
// no release ever completes, so the engine truncates each instance at
// its WCET and records the overrun.
type Busy struct{}

// Execute always reports unfinished work.
func (Busy) Execute(time.Duration) model.Outcome {
	return model.OutcomePartial
}
