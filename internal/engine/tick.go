package engine

import (
	"time"

	"github.com/me/mcsched/pkg/model"
)

// Tick processes one discrete scheduling tick and returns its record.
// Task-level anomalies (misses, overruns) are recorded as events, never
// returned as errors; the loop stays live every tick.
func (e *Engine) Tick() model.TickRecord {
	now := time.Duration(e.tick) * e.config.Granularity
	tasks := e.registry.List()

	rec := model.TickRecord{Tick: e.tick, Time: now}

	// Phase 1: expire incomplete instances whose deadline has passed.
	rec.Misses = e.monitor.Expire(tasks, now)

	// Phase 2: release due tasks. A release that supersedes a still
	// incomplete instance records that instance's miss.
	released, superseded := e.registry.ReleaseDue(now)
	rec.Released = released
	for _, miss := range superseded {
		if task, err := e.registry.Get(miss.Task); err == nil {
			e.monitor.RecordSuperseded(task, miss)
		}
		rec.Misses = append(rec.Misses, miss)
	}

	// Phase 3: rebuild the ready queue. The incumbent re-contends at
	// every boundary, which is where preemption happens.
	if e.running != nil {
		if e.running.State == model.TaskStateRunning {
			e.transition(e.running, model.TaskStateReady)
		}
		e.running = nil
	}
	e.queue.Clear()
	for _, task := range tasks {
		if task.State == model.TaskStateReady && !task.Shed {
			e.queue.Push(task)
			rec.Ready = append(rec.Ready, task.ID)
		}
	}

	// Phase 4: ranked selection through the admission gate. A rejected
	// candidate sheds its whole release and the next-ranked candidate
	// is consulted in turn.
	var selected *model.Task
	for {
		top, ok := e.queue.Pop()
		if !ok {
			break
		}
		if top.Remaining < top.WCET {
			// Resumed instance; admission was granted at its first slice.
			selected = top
			break
		}
		if !e.shedding || e.admission.Admit(top) {
			selected = top
			break
		}
		top.Shed = true
		top.Skips++
		rec.Skips = append(rec.Skips, model.Skip{
			Task:        top.ID,
			Criticality: top.Criticality,
			Release:     top.LastRelease,
			Time:        now,
		})
		e.logger.Debug("release shed",
			"task", top.Name,
			"criticality", top.Criticality,
			"release", top.LastRelease,
		)
	}

	// Phase 5: run one slice of the selected task.
	var busy float64
	if selected != nil {
		rec.Selected = selected.ID
		e.transition(selected, model.TaskStateRunning)
		busy = 1
		e.runSlice(&rec, selected, now)
	}

	// Phase 6: feed the utilization sample and close out the record.
	sample := busy
	if e.background != nil {
		sample += e.background(now)
	}
	e.admission.Observe(sample)

	rec.Load = e.admission.Estimate()
	rec.Overloaded = e.admission.Overloaded()
	rec.Outcome = outcomeFor(&rec)

	e.tick++
	e.collector.Record(rec, e.snapshot())
	if e.observer != nil {
		e.observer(rec)
	}
	return rec
}

// runSlice executes one slice of task's current release and settles the
// instance if it finished or exhausted its budget. The slice occupies
// [now, now+slice), so instance outcomes are stamped at its end.
func (e *Engine) runSlice(rec *model.TickRecord, task *model.Task, now time.Duration) {
	slice := e.config.Granularity
	if task.Remaining < slice {
		slice = task.Remaining
	}
	outcome := task.Work.Execute(slice)
	task.Remaining -= slice
	end := now + slice

	switch {
	case outcome == model.OutcomeCompleted:
		completion, miss := e.monitor.Complete(task, end)
		if miss != nil {
			rec.Misses = append(rec.Misses, *miss)
			return
		}
		rec.Completions = append(rec.Completions, completion)
	case task.Remaining <= 0:
		overrun, miss := e.monitor.Overrun(task, end)
		rec.Overruns = append(rec.Overruns, overrun)
		rec.Misses = append(rec.Misses, miss)
	default:
		e.running = task
	}
}

// outcomeFor labels the tick. Precedence: a slice ran, work was shed,
// misses landed, or the core idled.
func outcomeFor(rec *model.TickRecord) model.TickOutcome {
	switch {
	case rec.Selected != 0:
		return model.TickRan
	case len(rec.Skips) > 0:
		return model.TickSkipped
	case len(rec.Misses) > 0:
		return model.TickMissed
	default:
		return model.TickIdle
	}
}

// snapshot builds the aggregate view after e.tick processed ticks. Only
// the engine goroutine calls it; the collector hands out copies.
func (e *Engine) snapshot() model.MetricsSnapshot {
	tasks := e.registry.List()
	snap := model.MetricsSnapshot{
		Tick:         e.tick,
		Time:         time.Duration(e.tick) * e.config.Granularity,
		Mode:         e.config.Mode,
		Utilization:  e.registry.Utilization(),
		LoadEstimate: e.admission.Estimate(),
		Overloaded:   e.admission.Overloaded(),
		Tasks:        make([]model.TaskMetrics, 0, len(tasks)),
	}
	for _, task := range tasks {
		tm := model.TaskMetrics{
			ID:          task.ID,
			Name:        task.Name,
			Criticality: task.Criticality,
			Period:      task.Period,
			Deadline:    task.Deadline,
			WCET:        task.WCET,
			Releases:    task.Releases,
			Completions: task.Completions,
			Misses:      task.Misses,
			Skips:       task.Skips,
			Overruns:    task.Overruns,
			ResponseSum: task.ResponseSum,
			MaxResponse: task.ResponseMax,
		}
		if task.Releases > 0 {
			tm.MissRate = float64(task.Misses) / float64(task.Releases)
		}
		if task.Completions > 0 {
			tm.AvgResponse = task.ResponseSum / time.Duration(task.Completions)
		}
		if task.Criticality == model.CriticalityHard {
			snap.HardMisses += task.Misses
		}
		snap.Tasks = append(snap.Tasks, tm)
	}
	return snap
}

func (e *Engine) transition(task *model.Task, next model.TaskState) {
	if err := task.Transition(next); err != nil {
		e.logger.Error("illegal task transition", "task", task.Name, "error", err)
		task.State = next
	}
}
