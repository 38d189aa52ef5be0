package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	spam       bool
	configFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "caa-audit",
	Short: "Audit the Cover Art Archive against its MusicBrainz catalog",
	Long: `caa-audit compares archive.org Cover Art Archive items against a
MusicBrainz catalog snapshot: it fetches each item's remote metadata and
cover-art index and checks them against the expected state for its release.

  audit <input> <output>      Run an audit against a JSONL task stream.
  generate-output <output>    Rebuild reports from a prior run's journal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(auditCmd, generateOutputCmd)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level instead of info")
	rootCmd.PersistentFlags().BoolVar(&spam, "spam", false, "mirror every task's log records to stderr as they happen")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file overriding concurrency/spam defaults")
}
