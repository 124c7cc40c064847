package metrics

import (
	"time"

	"github.com/me/mcsched/pkg/model"
)

// FromRecords rebuilds a MetricsSnapshot from the raw event log alone.
// The result must equal the incrementally maintained snapshot exactly;
// replay and the round-trip tests rely on that equality.
func FromRecords(records []model.TickRecord, infos []model.TaskInfo, mode model.SchedulerMode, granularity time.Duration) model.MetricsSnapshot {
	byID := make(map[model.TaskID]*model.TaskMetrics, len(infos))
	tasks := make([]model.TaskMetrics, len(infos))
	for i, info := range infos {
		tasks[i] = model.TaskMetrics{
			ID:          info.ID,
			Name:        info.Name,
			Criticality: info.Criticality,
			Period:      info.Period,
			Deadline:    info.Deadline,
			WCET:        info.WCET,
		}
		byID[info.ID] = &tasks[i]
	}

	snap := model.MetricsSnapshot{Mode: mode, Tasks: tasks}
	for _, info := range infos {
		snap.Utilization += info.Utilization()
	}

	for _, rec := range records {
		for _, rel := range rec.Released {
			if tm := byID[rel.Task]; tm != nil {
				tm.Releases++
			}
		}
		for _, comp := range rec.Completions {
			tm := byID[comp.Task]
			if tm == nil {
				continue
			}
			tm.Completions++
			tm.ResponseSum += comp.Response
			if comp.Response > tm.MaxResponse {
				tm.MaxResponse = comp.Response
			}
		}
		for _, miss := range rec.Misses {
			if tm := byID[miss.Task]; tm != nil {
				tm.Misses++
			}
			if miss.Criticality == model.CriticalityHard {
				snap.HardMisses++
			}
		}
		for _, skip := range rec.Skips {
			if tm := byID[skip.Task]; tm != nil {
				tm.Skips++
			}
		}
		for _, ov := range rec.Overruns {
			if tm := byID[ov.Task]; tm != nil {
				tm.Overruns++
			}
		}
	}

	for i := range tasks {
		tm := &tasks[i]
		if tm.Releases > 0 {
			tm.MissRate = float64(tm.Misses) / float64(tm.Releases)
		}
		if tm.Completions > 0 {
			tm.AvgResponse = tm.ResponseSum / time.Duration(tm.Completions)
		}
	}

	if n := len(records); n > 0 {
		last := records[n-1]
		snap.Tick = last.Tick + 1
		snap.Time = last.Time + granularity
		snap.LoadEstimate = last.Load
		snap.Overloaded = last.Overloaded
	}
	return snap
}
