// Package monitor detects and classifies deadline misses and accounts
// response times. It is the only component besides the engine that
// mutates task counters, and only on the engine goroutine.
package monitor

import (
	"log/slog"
	"time"

	"github.com/me/mcsched/pkg/model"
)

// Monitor inspects task outcomes at tick boundaries and completions.
type Monitor struct {
	logger *slog.Logger
}

// New creates a Monitor.
func New(logger *slog.Logger) *Monitor {
	return &Monitor{logger: logger.With("component", "monitor")}
}

// Expire records a miss for every instance whose absolute deadline has
// passed while still READY or RUNNING. An incomplete instance at its
// deadline boundary can only finish strictly later, so the miss is
// recorded as soon as now reaches the deadline. Terminal states are left
// in place; the registry re-arms the task at its next release.
func (m *Monitor) Expire(tasks []*model.Task, now time.Duration) []model.Miss {
	var misses []model.Miss
	for _, task := range tasks {
		if task.State != model.TaskStateReady && task.State != model.TaskStateRunning {
			continue
		}
		if task.AbsoluteDeadline > now {
			continue
		}
		miss := model.Miss{
			Task:        task.ID,
			Criticality: task.Criticality,
			Reason:      model.MissExpired,
			Release:     task.LastRelease,
			Deadline:    task.AbsoluteDeadline,
			Time:        now,
		}
		m.transition(task, model.TaskStateMissed)
		m.count(task, miss)
		misses = append(misses, miss)
	}
	return misses
}

// Complete records the end of a release instance. Completion at or
// before the absolute deadline yields a Completion with its response
// time; completion after it is a miss, not a completion.
func (m *Monitor) Complete(task *model.Task, now time.Duration) (model.Completion, *model.Miss) {
	if now > task.AbsoluteDeadline {
		miss := model.Miss{
			Task:        task.ID,
			Criticality: task.Criticality,
			Reason:      model.MissLate,
			Release:     task.LastRelease,
			Deadline:    task.AbsoluteDeadline,
			Time:        now,
		}
		m.transition(task, model.TaskStateMissed)
		m.count(task, miss)
		return model.Completion{}, &miss
	}

	response := now - task.LastRelease
	task.Completions++
	task.ResponseSum += response
	if response > task.ResponseMax {
		task.ResponseMax = response
	}
	m.transition(task, model.TaskStateCompleted)
	m.logger.Debug("task completed",
		"task", task.Name,
		"release", task.LastRelease,
		"response", response,
	)
	return model.Completion{
		Task:     task.ID,
		Release:  task.LastRelease,
		Time:     now,
		Response: response,
	}, nil
}

// Overrun truncates an instance that exhausted its WCET budget without
// completing. The instance can never finish, so the miss is recorded at
// truncation rather than waiting for the deadline to pass.
func (m *Monitor) Overrun(task *model.Task, now time.Duration) (model.Overrun, model.Miss) {
	overrun := model.Overrun{
		Task:    task.ID,
		Release: task.LastRelease,
		Budget:  task.WCET,
		Time:    now,
	}
	miss := model.Miss{
		Task:        task.ID,
		Criticality: task.Criticality,
		Reason:      model.MissOverrun,
		Release:     task.LastRelease,
		Deadline:    task.AbsoluteDeadline,
		Time:        now,
	}
	task.Overruns++
	m.logger.Warn("wcet overrun, instance truncated",
		"task", task.Name,
		"release", task.LastRelease,
		"budget", task.WCET,
	)
	m.transition(task, model.TaskStateMissed)
	m.count(task, miss)
	return overrun, miss
}

// RecordSuperseded accounts a miss produced by the registry when a new
// release overran a still-incomplete instance.
func (m *Monitor) RecordSuperseded(task *model.Task, miss model.Miss) {
	m.count(task, miss)
}

func (m *Monitor) count(task *model.Task, miss model.Miss) {
	task.Misses++
	if miss.Criticality == model.CriticalityHard {
		m.logger.Error("HARD deadline miss",
			"task", task.Name,
			"reason", miss.Reason,
			"release", miss.Release,
			"deadline", miss.Deadline,
			"time", miss.Time,
		)
		return
	}
	m.logger.Debug("deadline miss",
		"task", task.Name,
		"criticality", miss.Criticality,
		"reason", miss.Reason,
		"release", miss.Release,
	)
}

func (m *Monitor) transition(task *model.Task, next model.TaskState) {
	if err := task.Transition(next); err != nil {
		m.logger.Error("illegal task transition", "task", task.Name, "error", err)
		task.State = next
	}
}
