// Package admission implements the mixed-criticality admission gate:
// load shedding for FIRM and SOFT work under overload, with hysteresis.
package admission

import (
	"log/slog"

	"github.com/me/mcsched/pkg/model"
)

// Config holds the controller thresholds. Low must sit strictly below
// high; the gap is what prevents admit/shed oscillation tick to tick.
type Config struct {
	HighWatermark float64
	LowWatermark  float64
	// Alpha is the EWMA smoothing factor for the utilization estimate.
	// On a single core the per-tick sample is 0 or 1, so alpha must be
	// small enough that the estimate spans many periods rather than
	// chasing individual busy stretches. The default 0.02 averages over
	// roughly a hundred ticks.
	Alpha float64
	// FirmSkipRatio admits a FIRM task on every Nth considered release
	// while the overload latch is engaged.
	FirmSkipRatio int
}

// DefaultConfig returns the stock 0.85/0.70 watermark pair.
func DefaultConfig() Config {
	return Config{
		HighWatermark: 0.85,
		LowWatermark:  0.70,
		Alpha:         0.02,
		FirmSkipRatio: 2,
	}
}

// Controller keeps a rolling utilization estimate and decides, per
// release, whether non-HARD work is admitted. Its only state is the
// estimate, the hysteresis latch, and per-task skip cadence counters.
type Controller struct {
	cfg        Config
	estimate   float64
	overloaded bool
	firmSeen   map[model.TaskID]int64
	logger     *slog.Logger
}

// New creates a Controller.
func New(cfg Config, logger *slog.Logger) *Controller {
	if cfg.FirmSkipRatio < 1 {
		cfg.FirmSkipRatio = 1
	}
	return &Controller{
		cfg:      cfg,
		firmSeen: make(map[model.TaskID]int64),
		logger:   logger.With("component", "admission"),
	}
}

// Observe folds one tick's utilization sample into the estimate and
// updates the hysteresis latch. The sample is the executed fraction of
// the tick plus any synthetic background load.
func (c *Controller) Observe(sample float64) {
	if sample < 0 {
		sample = 0
	}
	c.estimate = c.cfg.Alpha*sample + (1-c.cfg.Alpha)*c.estimate

	switch {
	case !c.overloaded && c.estimate > c.cfg.HighWatermark:
		c.overloaded = true
		c.logger.Warn("overload latch engaged", "estimate", c.estimate, "high_watermark", c.cfg.HighWatermark)
	case c.overloaded && c.estimate < c.cfg.LowWatermark:
		c.overloaded = false
		clear(c.firmSeen)
		c.logger.Info("overload latch released", "estimate", c.estimate, "low_watermark", c.cfg.LowWatermark)
	}
}

// Admit decides whether the task's current release may execute. The
// engine calls it once per release, at first consideration, and latches
// the answer for that release. HARD tasks are admitted unconditionally.
func (c *Controller) Admit(task *model.Task) bool {
	if task.Criticality == model.CriticalityHard {
		return true
	}
	if !c.overloaded {
		return true
	}

	switch task.Criticality {
	case model.CriticalitySoft:
		return false
	case model.CriticalityFirm:
		c.firmSeen[task.ID]++
		return (c.firmSeen[task.ID]-1)%int64(c.cfg.FirmSkipRatio) == 0
	}
	return true
}

// Estimate returns the current utilization estimate.
func (c *Controller) Estimate() float64 {
	return c.estimate
}

// Overloaded reports whether the shedding latch is engaged.
func (c *Controller) Overloaded() bool {
	return c.overloaded
}
