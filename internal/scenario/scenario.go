// Package scenario defines reproducible experiment files: a scheduler
// configuration, a task set with workload bindings, a run duration, and
// an optional background load profile. The run, serve, and validate
// commands all consume scenarios; a built-in one models an autonomous
// vehicle control stack.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/mcsched/internal/config"
	"github.com/me/mcsched/internal/workload"
	"github.com/me/mcsched/pkg/model"
)

// Workload kinds recognized in scenario files.
const (
	KindFixed  = "fixed"
	KindScript = "script"
	KindBusy   = "busy"
)

// Scenario is one experiment: which scheduler to run, which tasks to
// register, how long to simulate, and what background load to inject.
type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Duration    config.Duration `yaml:"duration"`
	Config      config.Config   `yaml:"config"`
	Tasks       []TaskSpec      `yaml:"tasks"`
	Load        LoadSpec        `yaml:"load,omitempty"`
}

// TaskSpec declares one periodic task and the workload bound to it.
type TaskSpec struct {
	Name        string            `yaml:"name"`
	Period      config.Duration   `yaml:"period"`
	Deadline    config.Duration   `yaml:"deadline"`
	WCET        config.Duration   `yaml:"wcet"`
	Criticality model.Criticality `yaml:"criticality"`
	Phase       config.Duration   `yaml:"phase,omitempty"`
	Workload    WorkloadSpec      `yaml:"workload,omitempty"`
}

// WorkloadSpec selects the work model for a task. The zero value is a
// fixed workload costing the task's full WCET per release.
type WorkloadSpec struct {
	// Kind is fixed, script, or busy. Empty means fixed.
	Kind string `yaml:"kind,omitempty"`
	// Cost overrides the per-release cost of a fixed workload.
	Cost config.Duration `yaml:"cost,omitempty"`
	// Expr is the per-release cost expression of a script workload,
	// in milliseconds.
	Expr string `yaml:"expr,omitempty"`
}

// LoadSpec shapes background load over the run: fixed windows or a
// JavaScript expression over time_ms, never both.
type LoadSpec struct {
	Windows []LoadWindow `yaml:"windows,omitempty"`
	Expr    string       `yaml:"expr,omitempty"`
}

// LoadWindow adds utilization on [Start, End). Overlapping windows add.
type LoadWindow struct {
	Start       config.Duration `yaml:"start"`
	End         config.Duration `yaml:"end"`
	Utilization float64         `yaml:"utilization"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes YAML over the default scheduler configuration and
// validates the result.
func Parse(data []byte) (*Scenario, error) {
	sc := Scenario{Config: config.Default()}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Ticks returns the run length in engine ticks.
func (s *Scenario) Ticks() int64 {
	g := s.Config.TickGranularity.Duration()
	if g <= 0 {
		return 0
	}
	return int64(s.Duration.Duration() / g)
}

// Params converts the declared timing into registration parameters.
func (t TaskSpec) Params() model.TaskParams {
	return model.TaskParams{
		Name:        t.Name,
		Period:      t.Period.Duration(),
		Deadline:    t.Deadline.Duration(),
		WCET:        t.WCET.Duration(),
		Criticality: t.Criticality,
		Phase:       t.Phase.Duration(),
	}
}

// Runnable builds the workload bound to the task.
func (t TaskSpec) Runnable() (model.Runnable, error) {
	switch t.Workload.Kind {
	case "", KindFixed:
		cost := t.Workload.Cost.Duration()
		if cost == 0 {
			cost = t.WCET.Duration()
		}
		return workload.NewFixed(cost), nil
	case KindScript:
		return workload.NewScript(t.Workload.Expr, t.Params())
	case KindBusy:
		return workload.Busy{}, nil
	}
	return nil, fmt.Errorf("task %s: workload kind %q: must be %s, %s, or %s",
		t.Name, t.Workload.Kind, KindFixed, KindScript, KindBusy)
}

// LoadFunc builds the background load profile, or nil when the
// scenario declares none.
func (s *Scenario) LoadFunc() (func(now time.Duration) float64, error) {
	if s.Load.Expr != "" {
		ls, err := workload.NewLoadScript(s.Load.Expr)
		if err != nil {
			return nil, err
		}
		return ls.Sample, nil
	}
	if len(s.Load.Windows) == 0 {
		return nil, nil
	}
	windows := make([]LoadWindow, len(s.Load.Windows))
	copy(windows, s.Load.Windows)
	return func(now time.Duration) float64 {
		var sum float64
		for _, w := range windows {
			if now >= w.Start.Duration() && now < w.End.Duration() {
				sum += w.Utilization
			}
		}
		return sum
	}, nil
}

// Vehicle returns the built-in scenario: an autonomous vehicle control
// stack with steering control, path planning, obstacle perception, and
// a telemetry flush. Total utilization is about 0.55, feasible under
// every discipline; add a load window or expression to see the
// admission controller engage.
func Vehicle() *Scenario {
	return &Scenario{
		Name:        "vehicle",
		Description: "Autonomous vehicle control stack at nominal load",
		Duration:    config.Duration(60 * time.Second),
		Config:      config.Default(),
		Tasks: []TaskSpec{
			{
				Name:        "control",
				Period:      config.Duration(5 * time.Millisecond),
				Deadline:    config.Duration(5 * time.Millisecond),
				WCET:        config.Duration(time.Millisecond),
				Criticality: model.CriticalityHard,
			},
			{
				Name:        "planning",
				Period:      config.Duration(30 * time.Millisecond),
				Deadline:    config.Duration(35 * time.Millisecond),
				WCET:        config.Duration(5 * time.Millisecond),
				Criticality: model.CriticalityFirm,
			},
			{
				Name:        "perception",
				Period:      config.Duration(50 * time.Millisecond),
				Deadline:    config.Duration(100 * time.Millisecond),
				WCET:        config.Duration(8 * time.Millisecond),
				Criticality: model.CriticalitySoft,
			},
			{
				Name:        "telemetry",
				Period:      config.Duration(100 * time.Millisecond),
				Deadline:    config.Duration(500 * time.Millisecond),
				WCET:        config.Duration(2 * time.Millisecond),
				Criticality: model.CriticalitySoft,
			},
		},
	}
}
