// Package cli implements the mcsched command tree: run, validate,
// replay, and serve.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/mcsched/internal/admission"
	"github.com/me/mcsched/internal/engine"
	"github.com/me/mcsched/internal/logging"
	"github.com/me/mcsched/internal/registry"
	"github.com/me/mcsched/internal/scenario"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the mcsched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcsched",
		Short: "Mixed-criticality periodic task scheduler",
		Long: `mcsched simulates periodic task sets under rate-monotonic, earliest-
deadline-first, or mixed-criticality scheduling, with adaptive load
shedding, deadline miss classification, and a replayable event log.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Shorthand for --log-level=debug")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newReplayCmd(),
		newServeCmd(),
	)

	return root
}

// loadScenario reads a scenario file, or returns the built-in vehicle
// scenario when path is empty.
func loadScenario(path string) (*scenario.Scenario, error) {
	if path == "" {
		return scenario.Vehicle(), nil
	}
	return scenario.Load(path)
}

// buildEngine assembles a registry and engine from a validated scenario.
func buildEngine(sc *scenario.Scenario, logger *slog.Logger) (*engine.Engine, error) {
	granularity := sc.Config.TickGranularity.Duration()
	reg := registry.New(granularity, logger)
	for _, ts := range sc.Tasks {
		work, err := ts.Runnable()
		if err != nil {
			return nil, err
		}
		if _, err := reg.Register(ts.Params(), work); err != nil {
			return nil, err
		}
	}

	var opts []engine.Option
	loadFn, err := sc.LoadFunc()
	if err != nil {
		return nil, err
	}
	if loadFn != nil {
		opts = append(opts, engine.WithBackgroundLoad(loadFn))
	}

	cfg := engine.Config{
		Mode:        sc.Config.Scheduler,
		Granularity: granularity,
		Admission: admission.Config{
			HighWatermark: sc.Config.OverloadHighWatermark,
			LowWatermark:  sc.Config.OverloadLowWatermark,
			Alpha:         sc.Config.EWMAAlpha,
			FirmSkipRatio: sc.Config.FirmSkipRatio,
		},
	}
	return engine.New(cfg, reg, logger, opts...), nil
}
