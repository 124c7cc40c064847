// Package config defines the scheduling options recognized by the engine
// and loads them from YAML with defaults and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/mcsched/pkg/model"
)

// Duration wraps time.Duration for YAML decoding. It accepts duration
// strings ("5ms", "1s") and bare integers, which are read as milliseconds
// to match the tick-oriented timing tables this tool works with.
type Duration time.Duration

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or integer milliseconds: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the scheduler configuration surface.
type Config struct {
	// Scheduler selects the discipline: RMS, EDF, or MIXED_CRITICALITY.
	Scheduler model.SchedulerMode `yaml:"scheduler"`

	// TickGranularity is the logical duration of one tick.
	TickGranularity Duration `yaml:"tick_granularity"`

	// OverloadHighWatermark engages load shedding when the utilization
	// estimate rises above it; OverloadLowWatermark disengages shedding
	// when the estimate falls below it. Low must be strictly below high.
	OverloadHighWatermark float64 `yaml:"overload_high_watermark"`
	OverloadLowWatermark  float64 `yaml:"overload_low_watermark"`

	// FirmSkipRatio admits a FIRM task on every Nth release while
	// shedding is engaged.
	FirmSkipRatio int `yaml:"firm_skip_ratio"`

	// EWMAAlpha is the smoothing factor of the utilization estimate.
	EWMAAlpha float64 `yaml:"ewma_alpha"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the stock configuration: mixed-criticality scheduling
// at 1ms ticks with an 0.85/0.70 watermark pair.
func Default() Config {
	return Config{
		Scheduler:             model.ModeMixedCriticality,
		TickGranularity:       Duration(time.Millisecond),
		OverloadHighWatermark: 0.85,
		OverloadLowWatermark:  0.70,
		FirmSkipRatio:         2,
		EWMAAlpha:             0.02,
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes the scheduler mode and checks every option range.
func (c *Config) Validate() error {
	mode, err := model.ParseSchedulerMode(string(c.Scheduler))
	if err != nil {
		return fmt.Errorf("scheduler: %q is not one of RMS, EDF, MIXED_CRITICALITY", c.Scheduler)
	}
	c.Scheduler = mode

	if c.TickGranularity.Duration() <= 0 {
		return fmt.Errorf("tick_granularity: must be positive, got %v", c.TickGranularity.Duration())
	}
	if c.OverloadHighWatermark <= 0 || c.OverloadHighWatermark > 1 {
		return fmt.Errorf("overload_high_watermark: must be within (0, 1], got %v", c.OverloadHighWatermark)
	}
	if c.OverloadLowWatermark <= 0 {
		return fmt.Errorf("overload_low_watermark: must be positive, got %v", c.OverloadLowWatermark)
	}
	if c.OverloadLowWatermark >= c.OverloadHighWatermark {
		return fmt.Errorf("overload watermarks: low (%v) must be strictly below high (%v)",
			c.OverloadLowWatermark, c.OverloadHighWatermark)
	}
	if c.FirmSkipRatio < 1 {
		return fmt.Errorf("firm_skip_ratio: must be at least 1, got %d", c.FirmSkipRatio)
	}
	if c.EWMAAlpha <= 0 || c.EWMAAlpha > 1 {
		return fmt.Errorf("ewma_alpha: must be within (0, 1], got %v", c.EWMAAlpha)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format: must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}
