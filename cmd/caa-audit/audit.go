package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ROpdebee/CAA-Auditor/internal/aggregator"
	"github.com/ROpdebee/CAA-Auditor/internal/config"
	"github.com/ROpdebee/CAA-Auditor/internal/credentials"
	"github.com/ROpdebee/CAA-Auditor/internal/logsink"
	"github.com/ROpdebee/CAA-Auditor/internal/pipeline"
	"github.com/ROpdebee/CAA-Auditor/internal/progress"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

var concurrencyFlag int

var auditCmd = &cobra.Command{
	Use:   "audit <input> <output>",
	Short: "Audit every task record in a JSONL input stream",
	Args:  cobra.ExactArgs(2),
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().IntVar(&concurrencyFlag, "concurrency", config.DefaultConcurrency, "number of tasks to audit concurrently")
}

func runAudit(cmd *cobra.Command, args []string) error {
	inputPath, outputDir := args[0], args[1]
	runID := logsink.NewRunID()
	runLogger := logsink.NewRunLogger(runID)
	if verbose {
		runLogger.Logger.SetLevel(logrus.DebugLevel)
	}

	fileCfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	concurrency := config.ResolveConcurrency(fileCfg, concurrencyFlag, cmd.Flags().Changed("concurrency")).Value
	spamResolved := config.ResolveSpam(fileCfg, spam, cmd.Flags().Changed("spam")).Value
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	credPath, err := credentials.DefaultPath()
	if err != nil {
		return fmt.Errorf("locating credentials file: %w", err)
	}
	creds, err := credentials.Load(credPath)
	if err != nil {
		return fmt.Errorf("loading archive.org credentials from %s: %w", credPath, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	src, err := pipeline.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	defer src.Close()

	maxLastModified := time.Unix(src.Meta.MaxLastModified, 0).UTC()

	total, err := pipeline.CountTasks(inputPath)
	if err != nil {
		return fmt.Errorf("counting tasks: %w", err)
	}

	reporter := progress.New(total)
	defer reporter.Close()

	agg, err := aggregator.New(outputDir, reporter)
	if err != nil {
		return fmt.Errorf("opening results journal: %w", err)
	}
	defer agg.Close()

	client := remote.NewClient(creds, concurrency)

	runLogger.Infof("starting audit of %d tasks with concurrency %d (spam=%v)", total, concurrency, spamResolved)

	dispatcher := &pipeline.Dispatcher{
		Concurrency:     concurrency,
		OutputDir:       outputDir,
		Client:          client,
		Progress:        reporter,
		Aggregator:      agg,
		Spam:            spamResolved,
		RunLogger:       runLogger,
		MaxLastModified: maxLastModified,
	}

	if err := dispatcher.Run(context.Background(), src); err != nil {
		runLogger.WithError(err).Error("audit run stopped early")
		return err
	}

	runLogger.Info("audit run complete")
	return nil
}
