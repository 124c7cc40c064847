package cli

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/me/mcsched/internal/metrics"
	"github.com/me/mcsched/internal/telemetry"
)

func newReplayCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Rebuild a saved run's report from its event log",
		Long: `Reads a persisted run's tick events back from the database, recomputes
every aggregate from scratch, and checks the result against the snapshot
stored at the end of the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			st, err := telemetry.NewSQLiteStore(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			run, err := st.GetRun(ctx, id)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found in %s", id, dbPath)
			}
			records, err := st.RecordsSince(ctx, id, 0)
			if err != nil {
				return err
			}

			recomputed := metrics.FromRecords(records, run.Tasks, run.Mode, run.Granularity)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %s, %d ticks, %d events\n", run.ID, run.Scenario, run.Ticks, len(records))
			writeSummary(out, recomputed)
			fmt.Fprintln(out)
			writeTaskTable(out, recomputed)

			if !reflect.DeepEqual(recomputed, run.Snapshot) {
				return fmt.Errorf("replayed aggregates do not match the stored snapshot")
			}
			fmt.Fprintln(out, "\nReplay matches the stored snapshot.")
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database holding the run")
	cmd.MarkFlagRequired("db")

	return cmd
}
