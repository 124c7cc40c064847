package workload

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/me/mcsched/pkg/model"
)

// Script models work whose cost varies per release, computed by a
// JavaScript expression. The expression is evaluated once per release
// with these variables bound:
//
//	release      zero-based release index
//	time_ms      logical release time in milliseconds (phase + release*period)
//	period_ms    task period in milliseconds
//	deadline_ms  relative deadline in milliseconds
//	wcet_ms      declared worst-case budget in milliseconds
//
// The result must be a non-negative number of milliseconds; a statement
// sequence works too, with the last expression's value taken as the
// cost. Costs above wcet_ms overrun, costs below it complete early.
type Script struct {
	expr   string
	params model.TaskParams

	release  int64
	cost     time.Duration
	progress time.Duration
}

// NewScript validates expr by evaluating it for the first release and
// returns the workload primed for that release.
func NewScript(expr string, params model.TaskParams) (*Script, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("workload script: empty expression")
	}
	s := &Script{expr: expr, params: params, release: -1}
	cost, err := s.eval(0)
	if err != nil {
		return nil, err
	}
	s.cost = cost
	return s, nil
}

// Execute consumes budget toward the current release's cost.
func (s *Script) Execute(budget time.Duration) model.Outcome {
	s.progress += budget
	if s.progress >= s.cost {
		return model.OutcomeCompleted
	}
	return model.OutcomePartial
}

// Reset advances to the next release and recomputes its cost. A release
// whose evaluation fails costs the declared WCET.
func (s *Script) Reset() {
	s.release++
	s.progress = 0
	cost, err := s.eval(s.release)
	if err != nil {
		cost = s.params.WCET
	}
	s.cost = cost
}

func (s *Script) eval(release int64) (time.Duration, error) {
	vm := goja.New()
	vars := map[string]any{
		"release":     release,
		"time_ms":     float64(s.params.Phase+time.Duration(release)*s.params.Period) / float64(time.Millisecond),
		"period_ms":   float64(s.params.Period) / float64(time.Millisecond),
		"deadline_ms": float64(s.params.Deadline) / float64(time.Millisecond),
		"wcet_ms":     float64(s.params.WCET) / float64(time.Millisecond),
	}
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return 0, fmt.Errorf("workload script: set %s: %w", name, err)
		}
	}
	ms, err := evalNumber(vm, s.expr)
	if err != nil {
		return 0, fmt.Errorf("workload script: %w", err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("workload script: negative cost %v for release %d", ms, release)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// LoadScript evaluates a JavaScript expression into a background load
// sample each tick, for scenarios that shape overload as a function of
// time rather than fixed windows. The variable time_ms holds the
// logical sample time in milliseconds. Results are clamped to be
// non-negative; a sample that fails to evaluate reads as zero load.
type LoadScript struct {
	vm   *goja.Runtime
	expr string
}

// NewLoadScript validates expr by sampling it at time zero.
func NewLoadScript(expr string) (*LoadScript, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("load script: empty expression")
	}
	s := &LoadScript{vm: goja.New(), expr: expr}
	if _, err := s.sample(0); err != nil {
		return nil, err
	}
	return s, nil
}

// Sample returns the background load at logical time now. It reuses one
// JavaScript runtime and is only called from the engine's loop
// goroutine, never concurrently.
func (s *LoadScript) Sample(now time.Duration) float64 {
	v, err := s.sample(now)
	if err != nil {
		return 0
	}
	return v
}

func (s *LoadScript) sample(now time.Duration) (float64, error) {
	if err := s.vm.Set("time_ms", float64(now)/float64(time.Millisecond)); err != nil {
		return 0, fmt.Errorf("load script: set time_ms: %w", err)
	}
	v, err := evalNumber(s.vm, s.expr)
	if err != nil {
		return 0, fmt.Errorf("load script: %w", err)
	}
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

// evalNumber runs expr in vm and extracts a finite numeric result.
func evalNumber(vm *goja.Runtime, expr string) (float64, error) {
	val, err := vm.RunString(expr)
	if err != nil {
		return 0, err
	}
	switch v := val.Export().(type) {
	case int64:
		return float64(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("expression returned %v", v)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("expression did not return a number: %T", v)
	}
}
