// Package engine drives the scheduling loop in discrete ticks: it
// releases due tasks, gates them through admission, runs one slice of
// the selected task, and records every outcome. The engine goroutine is
// the single writer of all task state; every other component reads
// immutable snapshots taken between ticks.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/mcsched/internal/admission"
	"github.com/me/mcsched/internal/metrics"
	"github.com/me/mcsched/internal/monitor"
	"github.com/me/mcsched/internal/policy"
	"github.com/me/mcsched/internal/registry"
	"github.com/me/mcsched/pkg/model"
)

// Config holds execution engine configuration.
type Config struct {
	Mode        model.SchedulerMode
	Granularity time.Duration
	Admission   admission.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:        model.ModeMixedCriticality,
		Granularity: time.Millisecond,
		Admission:   admission.DefaultConfig(),
	}
}

// LoadFunc models load external to the registered task set, as a
// utilization fraction sampled once per tick. Scenarios use it to
// inject overload windows.
type LoadFunc func(now time.Duration) float64

// Option configures optional engine behavior.
type Option func(*Engine)

// WithBackgroundLoad adds fn's sample to the utilization observed by
// the admission controller each tick.
func WithBackgroundLoad(fn LoadFunc) Option {
	return func(e *Engine) { e.background = fn }
}

// WithObserver registers fn to receive every tick record as it is
// produced, on the engine goroutine. Observers must not block.
func WithObserver(fn func(model.TickRecord)) Option {
	return func(e *Engine) { e.observer = fn }
}

// Engine is the tick-driven execution core.
type Engine struct {
	config    Config
	registry  *registry.Registry
	policy    policy.Policy
	queue     *policy.ReadyQueue
	admission *admission.Controller
	monitor   *monitor.Monitor
	collector *metrics.Collector
	logger    *slog.Logger

	tick       int64
	running    *model.Task
	shedding   bool
	background LoadFunc
	observer   func(model.TickRecord)

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an Engine over reg. Tasks already registered appear in
// the initial snapshot; tasks registered later join at their next due
// release. Load shedding is active only in MIXED_CRITICALITY mode; the
// pure disciplines run with the admission gate open.
func New(cfg Config, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Engine {
	if cfg.Granularity <= 0 {
		cfg.Granularity = time.Millisecond
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = model.ModeMixedCriticality
	}
	pol := policy.ForMode(cfg.Mode)

	e := &Engine{
		config:    cfg,
		registry:  reg,
		policy:    pol,
		queue:     policy.NewReadyQueue(pol),
		admission: admission.New(cfg.Admission, logger),
		monitor:   monitor.New(logger),
		logger:    logger.With("component", "engine"),
		shedding:  cfg.Mode == model.ModeMixedCriticality,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.collector = metrics.NewCollector(e.snapshot())
	return e
}

// Start runs the loop paced by the tick granularity. Blocks until ctx
// is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("engine started",
		"mode", e.config.Mode,
		"policy", e.policy.Name(),
		"granularity", e.config.Granularity,
		"tasks", e.registry.Len(),
	)
	ticker := time.NewTicker(e.config.Granularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping (context cancelled)")
			close(e.doneCh)
			return ctx.Err()
		case <-e.stopCh:
			e.logger.Info("engine stopping (stop called)")
			close(e.doneCh)
			return nil
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Stop shuts down a started engine and waits for the current tick to
// finish.
func (e *Engine) Stop() error {
	close(e.stopCh)
	<-e.doneCh
	return nil
}

// RunFor advances the engine by the given number of ticks as fast as
// possible. Used for batch simulation runs. Returns early only when ctx
// is cancelled.
func (e *Engine) RunFor(ctx context.Context, ticks int64) error {
	e.logger.Info("run started",
		"mode", e.config.Mode,
		"policy", e.policy.Name(),
		"granularity", e.config.Granularity,
		"ticks", ticks,
		"tasks", e.registry.Len(),
	)
	for i := int64(0); i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		e.Tick()
	}
	snap := e.collector.Snapshot()
	e.logger.Info("run completed",
		"ticks", snap.Tick,
		"simulated", snap.Time,
		"hard_misses", snap.HardMisses,
		"load_estimate", snap.LoadEstimate,
	)
	return nil
}

// State is an explicit view of the engine's mutable scheduling state.
// There is no process-wide mode or clock; everything lives here. Read
// it between runs; while a paced engine is running, use Snapshot, which
// is safe for concurrent readers.
type State struct {
	Mode         model.SchedulerMode `json:"mode"`
	Policy       string              `json:"policy"`
	Tick         int64               `json:"tick"`
	Now          time.Duration       `json:"now"`
	LoadEstimate float64             `json:"load_estimate"`
	Overloaded   bool                `json:"overloaded"`
}

// State reports the engine's current scheduling state.
func (e *Engine) State() State {
	return State{
		Mode:         e.config.Mode,
		Policy:       e.policy.Name(),
		Tick:         e.tick,
		Now:          time.Duration(e.tick) * e.config.Granularity,
		LoadEstimate: e.admission.Estimate(),
		Overloaded:   e.admission.Overloaded(),
	}
}

// Snapshot returns the aggregate after the last processed tick.
func (e *Engine) Snapshot() model.MetricsSnapshot {
	return e.collector.Snapshot()
}

// EventsSince returns the ordered tick records with logical time at or
// after since.
func (e *Engine) EventsSince(since time.Duration) []model.TickRecord {
	return e.collector.EventsSince(since)
}

// Collector exposes the metrics collector for transport and telemetry
// layers.
func (e *Engine) Collector() *metrics.Collector {
	return e.collector
}

// Registry exposes the task registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
