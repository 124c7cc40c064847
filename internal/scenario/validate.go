package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/me/mcsched/internal/workload"
	"github.com/me/mcsched/pkg/model"
)

// FieldError locates one invalid value in a scenario document.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every problem found in a scenario so a
// file can be fixed in one pass.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid scenario: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid scenario (%d problems):", len(e.Errors))
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "\n  %s: %s", fe.Field, fe.Message)
	}
	return b.String()
}

// Validate checks the whole scenario, normalizing criticalities and
// workload kinds in place. It reports every problem found, not just
// the first.
func (s *Scenario) Validate() error {
	var errs []FieldError
	errs = append(errs, s.validateHeader()...)
	errs = append(errs, s.validateConfig()...)
	errs = append(errs, s.validateTasks()...)
	errs = append(errs, s.validateLoad()...)
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func (s *Scenario) validateHeader() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if s.Duration.Duration() <= 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "must be positive"})
	} else if g := s.Config.TickGranularity.Duration(); g > 0 && s.Duration.Duration()%g != 0 {
		errs = append(errs, FieldError{
			Field:   "duration",
			Message: fmt.Sprintf("must be a multiple of the tick granularity %v", g),
		})
	}
	return errs
}

func (s *Scenario) validateConfig() []FieldError {
	if err := s.Config.Validate(); err != nil {
		return []FieldError{{Field: "config", Message: err.Error()}}
	}
	return nil
}

func (s *Scenario) validateTasks() []FieldError {
	if len(s.Tasks) == 0 {
		return []FieldError{{Field: "tasks", Message: "at least one task is required"}}
	}

	var errs []FieldError
	seen := make(map[string]bool, len(s.Tasks))
	g := s.Config.TickGranularity.Duration()
	for i := range s.Tasks {
		t := &s.Tasks[i]
		prefix := fmt.Sprintf("tasks[%d]", i)

		if c, err := model.ParseCriticality(string(t.Criticality)); err == nil {
			t.Criticality = c
		}
		if err := t.Params().Validate(g); err != nil {
			var inv *model.InvalidTaskError
			if errors.As(err, &inv) {
				errs = append(errs, FieldError{Field: prefix + "." + inv.Field, Message: inv.Reason})
			} else {
				errs = append(errs, FieldError{Field: prefix, Message: err.Error()})
			}
		}
		if t.Name != "" {
			if seen[t.Name] {
				errs = append(errs, FieldError{
					Field:   prefix + ".name",
					Message: fmt.Sprintf("duplicate task name %q", t.Name),
				})
			}
			seen[t.Name] = true
		}
		errs = append(errs, t.validateWorkload(prefix)...)
	}
	return errs
}

func (t *TaskSpec) validateWorkload(prefix string) []FieldError {
	var errs []FieldError
	kind := strings.ToLower(strings.TrimSpace(t.Workload.Kind))
	t.Workload.Kind = kind

	switch kind {
	case "", KindFixed:
		if t.Workload.Cost.Duration() < 0 {
			errs = append(errs, FieldError{Field: prefix + ".workload.cost", Message: "must not be negative"})
		}
		if t.Workload.Expr != "" {
			errs = append(errs, FieldError{Field: prefix + ".workload.expr", Message: "only valid for the script kind"})
		}
	case KindScript:
		if t.Workload.Cost.Duration() != 0 {
			errs = append(errs, FieldError{Field: prefix + ".workload.cost", Message: "only valid for the fixed kind"})
		}
		if strings.TrimSpace(t.Workload.Expr) == "" {
			errs = append(errs, FieldError{Field: prefix + ".workload.expr", Message: "script workload requires an expression"})
		} else if _, err := workload.NewScript(t.Workload.Expr, t.Params()); err != nil {
			errs = append(errs, FieldError{Field: prefix + ".workload.expr", Message: err.Error()})
		}
	case KindBusy:
		if t.Workload.Cost.Duration() != 0 {
			errs = append(errs, FieldError{Field: prefix + ".workload.cost", Message: "only valid for the fixed kind"})
		}
		if t.Workload.Expr != "" {
			errs = append(errs, FieldError{Field: prefix + ".workload.expr", Message: "only valid for the script kind"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   prefix + ".workload.kind",
			Message: fmt.Sprintf("unknown kind %q: must be %s, %s, or %s", kind, KindFixed, KindScript, KindBusy),
		})
	}
	return errs
}

func (s *Scenario) validateLoad() []FieldError {
	var errs []FieldError
	if len(s.Load.Windows) > 0 && s.Load.Expr != "" {
		errs = append(errs, FieldError{Field: "load", Message: "windows and expr are mutually exclusive"})
	}
	for i, w := range s.Load.Windows {
		prefix := fmt.Sprintf("load.windows[%d]", i)
		if w.End.Duration() <= w.Start.Duration() {
			errs = append(errs, FieldError{Field: prefix, Message: "end must be after start"})
		}
		if w.Start.Duration() < 0 {
			errs = append(errs, FieldError{Field: prefix + ".start", Message: "must not be negative"})
		}
		if w.Utilization < 0 {
			errs = append(errs, FieldError{Field: prefix + ".utilization", Message: "must not be negative"})
		}
	}
	if s.Load.Expr != "" {
		if _, err := workload.NewLoadScript(s.Load.Expr); err != nil {
			errs = append(errs, FieldError{Field: "load.expr", Message: err.Error()})
		}
	}
	return errs
}
