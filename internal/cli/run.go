package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/mcsched/internal/config"
	"github.com/me/mcsched/internal/telemetry"
	"github.com/me/mcsched/pkg/model"
)

func newRunCmd() *cobra.Command {
	var mode string
	var duration time.Duration
	var dbPath string

	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run a scenario to completion and print the per-task report",
		Long: `Runs a scenario's task set for its full duration as fast as possible
and prints the per-task report. Without an argument the built-in vehicle
scenario is used. With --db the run and its full event log are persisted
for later replay.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			sc, err := loadScenario(path)
			if err != nil {
				return err
			}
			if mode != "" {
				m, err := model.ParseSchedulerMode(mode)
				if err != nil {
					return err
				}
				sc.Config.Scheduler = m
			}
			if duration > 0 {
				if duration%sc.Config.TickGranularity.Duration() != 0 {
					return fmt.Errorf("duration %s is not a multiple of the %s tick granularity",
						duration, sc.Config.TickGranularity.Duration())
				}
				sc.Duration = config.Duration(duration)
			}

			eng, err := buildEngine(sc, logger)
			if err != nil {
				return err
			}

			startedAt := time.Now().UTC()
			if err := eng.RunFor(cmd.Context(), sc.Ticks()); err != nil {
				return err
			}
			finishedAt := time.Now().UTC()

			snap := eng.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenario: %s\n", sc.Name)
			writeSummary(out, snap)
			fmt.Fprintln(out)
			writeTaskTable(out, snap)

			if dbPath == "" {
				return nil
			}

			st, err := telemetry.NewSQLiteStore(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			run := &telemetry.Run{
				ID:          telemetry.NewRunID(),
				Scenario:    sc.Name,
				Mode:        snap.Mode,
				Granularity: sc.Config.TickGranularity.Duration(),
				Ticks:       snap.Tick,
				Tasks:       eng.Registry().Infos(),
				Snapshot:    snap,
				StartedAt:   startedAt,
				FinishedAt:  finishedAt,
			}
			if err := st.SaveRun(ctx, run); err != nil {
				return fmt.Errorf("save run: %w", err)
			}
			if err := st.AppendRecords(ctx, run.ID, eng.EventsSince(0)); err != nil {
				return fmt.Errorf("save events: %w", err)
			}
			fmt.Fprintf(out, "\nRun saved: %s (%s)\n", run.ID, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Override the scheduler mode (RMS, EDF, MIXED_CRITICALITY)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Override the scenario duration")
	cmd.Flags().StringVar(&dbPath, "db", "", "Persist the run to this SQLite database")

	return cmd
}
