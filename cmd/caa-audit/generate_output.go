package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ROpdebee/CAA-Auditor/internal/aggregator"
	"github.com/ROpdebee/CAA-Auditor/internal/pipeline"
	"github.com/ROpdebee/CAA-Auditor/internal/worker"
)

var (
	genLogs     bool
	genBadItems bool
	genTables   bool
)

var generateOutputCmd = &cobra.Command{
	Use:   "generate-output <output>",
	Short: "Rebuild logs/CSV/tables from a prior run's results journal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerateOutput,
}

func init() {
	generateOutputCmd.Flags().BoolVar(&genLogs, "logs", true, "write skipped_items.log and failed_checks.log")
	generateOutputCmd.Flags().BoolVar(&genBadItems, "bad-items", true, "write bad_items.csv")
	generateOutputCmd.Flags().BoolVar(&genTables, "tables", true, "write results_all.txt, results_condensed.txt, and results_jira.txt")
}

func runGenerateOutput(cmd *cobra.Command, args []string) error {
	outputDir := args[0]
	journalPath := filepath.Join(outputDir, aggregator.JournalName)

	stats, err := aggregator.BuildStats(journalPath, outputDir, genLogs)
	if err != nil {
		return fmt.Errorf("scanning results journal: %w", err)
	}

	if err := aggregator.WriteReports(stats, outputDir, genBadItems, genTables); err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}

	reportMissingTaskDirs(cmd, outputDir, stats)

	cmd.Println(aggregator.RenderTerminalTable(stats))
	return nil
}

// reportMissingTaskDirs cross-checks every MBID the journal mentions against
// its fanout directory's audit_log, fanning the filesystem probes out across
// a worker pool since a run's MBID set can be very large (MODULE MAP:
// internal/worker reused, unmodified, for generate-output's parallel rescan).
func reportMissingTaskDirs(cmd *cobra.Command, outputDir string, stats *aggregator.Stats) {
	mbids := stats.AllMBIDs()
	pool := worker.NewPool[bool](0)
	results := pool.Process(mbids, func(mbid string) (bool, error) {
		_, err := os.Stat(filepath.Join(pipeline.FanoutPath(outputDir, mbid), "audit_log"))
		return err == nil, nil
	})
	for i, r := range results {
		if !r.Value {
			cmd.PrintErrf("warning: %s has no audit_log under %s\n", mbids[i], outputDir)
		}
	}
}
