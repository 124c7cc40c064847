package model

import (
	"errors"
	"testing"
	"time"
)

func validParams() TaskParams {
	return TaskParams{
		Name:        "control",
		Period:      5 * time.Millisecond,
		Deadline:    5 * time.Millisecond,
		WCET:        2 * time.Millisecond,
		Criticality: CriticalityHard,
	}
}

func TestTaskParams_Validate(t *testing.T) {
	tick := time.Millisecond

	tests := []struct {
		name   string
		mutate func(*TaskParams)
		field  string
	}{
		{"empty name", func(p *TaskParams) { p.Name = "" }, "name"},
		{"zero period", func(p *TaskParams) { p.Period = 0 }, "period"},
		{"negative period", func(p *TaskParams) { p.Period = -time.Millisecond }, "period"},
		{"zero deadline", func(p *TaskParams) { p.Deadline = 0 }, "deadline"},
		{"zero wcet", func(p *TaskParams) { p.WCET = 0 }, "wcet"},
		{"wcet above deadline", func(p *TaskParams) { p.WCET = 10 * time.Millisecond; p.Deadline = 5 * time.Millisecond; p.Period = 10 * time.Millisecond }, "wcet"},
		{"bad criticality", func(p *TaskParams) { p.Criticality = "URGENT" }, "criticality"},
		{"negative phase", func(p *TaskParams) { p.Phase = -time.Millisecond }, "phase"},
		{"phase off the tick grid", func(p *TaskParams) { p.Phase = 500 * time.Microsecond }, "phase"},
		{"period off the tick grid", func(p *TaskParams) { p.Period = 5*time.Millisecond + 300*time.Microsecond }, "period"},
		{"deadline off the tick grid", func(p *TaskParams) { p.Deadline = 4500 * time.Microsecond }, "deadline"},
		{"wcet off the tick grid", func(p *TaskParams) { p.WCET = 1500 * time.Microsecond }, "wcet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate(tick)
			if err == nil {
				t.Fatal("Validate() = nil, want *InvalidTaskError")
			}
			var verr *InvalidTaskError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *InvalidTaskError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}

	if err := validParams().Validate(tick); err != nil {
		t.Errorf("Validate() on valid params = %v, want nil", err)
	}
}

func TestTaskParams_ValidateWithoutGranularity(t *testing.T) {
	p := validParams()
	p.Period = 5*time.Millisecond + 300*time.Microsecond
	p.Deadline = p.Period
	if err := p.Validate(0); err != nil {
		t.Errorf("Validate(0) = %v, want nil (grid alignment not enforced)", err)
	}
}

func TestTask_Utilization(t *testing.T) {
	task := &Task{Period: 5 * time.Millisecond, WCET: 2 * time.Millisecond}
	if got, want := task.Utilization(), 0.4; got != want {
		t.Errorf("Utilization() = %v, want %v", got, want)
	}
}

func TestParseCriticality(t *testing.T) {
	tests := []struct {
		in      string
		want    Criticality
		wantErr bool
	}{
		{"HARD", CriticalityHard, false},
		{"hard", CriticalityHard, false},
		{" Firm ", CriticalityFirm, false},
		{"soft", CriticalitySoft, false},
		{"DEFERRED", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCriticality(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCriticality(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCriticality(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSchedulerMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SchedulerMode
		wantErr bool
	}{
		{"RMS", ModeRMS, false},
		{"edf", ModeEDF, false},
		{"mixed_criticality", ModeMixedCriticality, false},
		{"FIFO", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSchedulerMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSchedulerMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSchedulerMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
