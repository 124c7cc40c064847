package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/mcsched/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			var util float64
			for _, ts := range sc.Tasks {
				p := ts.Params()
				util += float64(p.WCET) / float64(p.Period)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenario %q is valid\n", sc.Name)
			fmt.Fprintf(out, "  Tasks:       %d\n", len(sc.Tasks))
			fmt.Fprintf(out, "  Duration:    %s (%d ticks at %s granularity)\n",
				sc.Duration.Duration(), sc.Ticks(), sc.Config.TickGranularity.Duration())
			fmt.Fprintf(out, "  Mode:        %s\n", sc.Config.Scheduler)
			fmt.Fprintf(out, "  Utilization: %.3f\n", util)
			return nil
		},
	}
}
