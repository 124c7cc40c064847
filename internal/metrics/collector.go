// Package metrics aggregates the run history: a copy-on-read snapshot
// maintained tick by tick, and the ordered raw event log it is derived
// from. Either view reconstructs the other; FromRecords proves it.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/me/mcsched/pkg/model"
)

// Collector stores the latest snapshot and the full tick record log.
// The engine is the only writer; the RWMutex exists because paced runs
// serve snapshots and events over HTTP while the engine advances.
type Collector struct {
	mu       sync.RWMutex
	snapshot model.MetricsSnapshot
	records  []model.TickRecord
}

// NewCollector creates a Collector primed with an initial snapshot so
// readers before the first tick see the registered task set.
func NewCollector(initial model.MetricsSnapshot) *Collector {
	return &Collector{snapshot: initial}
}

// Record appends one tick's record and replaces the current snapshot.
func (c *Collector) Record(rec model.TickRecord, snap model.MetricsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	c.snapshot = snap
}

// Snapshot returns a copy of the latest aggregate.
func (c *Collector) Snapshot() model.MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySnapshot(c.snapshot)
}

// EventsSince returns the ordered tick records with logical time at or
// after since. EventsSince(0) is the full replayable log.
func (c *Collector) EventsSince(since time.Duration) []model.TickRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	start := sort.Search(len(c.records), func(i int) bool {
		return c.records[i].Time >= since
	})
	out := make([]model.TickRecord, len(c.records)-start)
	copy(out, c.records[start:])
	return out
}

// Ticks returns the number of recorded ticks.
func (c *Collector) Ticks() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func copySnapshot(s model.MetricsSnapshot) model.MetricsSnapshot {
	out := s
	out.Tasks = make([]model.TaskMetrics, len(s.Tasks))
	copy(out.Tasks, s.Tasks)
	return out
}
