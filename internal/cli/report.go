package cli

import (
	"fmt"
	"io"

	"github.com/me/mcsched/pkg/model"
)

// writeSummary prints the run-level aggregates.
func writeSummary(w io.Writer, snap model.MetricsSnapshot) {
	fmt.Fprintf(w, "  Mode:          %s\n", snap.Mode)
	fmt.Fprintf(w, "  Ticks:         %d (%s simulated)\n", snap.Tick, snap.Time)
	fmt.Fprintf(w, "  Utilization:   %.3f\n", snap.Utilization)
	fmt.Fprintf(w, "  Load estimate: %.3f\n", snap.LoadEstimate)
	fmt.Fprintf(w, "  Hard misses:   %d\n", snap.HardMisses)
}

// writeTaskTable prints the per-task report.
func writeTaskTable(w io.Writer, snap model.MetricsSnapshot) {
	fmt.Fprintf(w, "%-14s  %-5s  %9s  %9s  %6s  %6s  %8s  %9s  %10s  %10s\n",
		"TASK", "CRIT", "RELEASES", "COMPLETE", "MISS", "SKIP", "OVERRUNS", "MISSRATE", "AVG", "MAX")
	for _, tm := range snap.Tasks {
		fmt.Fprintf(w, "%-14s  %-5s  %9d  %9d  %6d  %6d  %8d  %8.1f%%  %10s  %10s\n",
			tm.Name, tm.Criticality, tm.Releases, tm.Completions, tm.Misses, tm.Skips,
			tm.Overruns, tm.MissRate*100, tm.AvgResponse, tm.MaxResponse)
	}
}
