package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/ctxmem/internal/telemetry"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded command metrics",
	Long: `Read the JSONL metrics file (metrics.path) and print counter totals per
command. Metrics are only recorded while metrics.enabled is true.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snaps, err := telemetry.ReadSnapshots(cfg.Metrics.Path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(snaps) == 0 {
		fmt.Fprintf(out, "No metrics recorded in %s\n", cfg.Metrics.Path)
		if !cfg.Metrics.Enabled {
			fmt.Fprintln(out, "Enable them with: ctxmem config set metrics.enabled true")
		}
		return nil
	}

	for _, t := range telemetry.Totals(snaps) {
		fmt.Fprintf(out, "%s (%d runs)\n", t.Command, t.Runs)
		keys := make([]string, 0, len(t.Counters))
		for k := range t.Counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if t.Counters[k] == 0 {
				continue
			}
			fmt.Fprintf(out, "  %-16s %d\n", k, t.Counters[k])
		}
	}
	return nil
}
