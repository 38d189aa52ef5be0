// Package engine implements the single-task orchestrator (C4): preconditions,
// staged comparisons against the catalog, and fatal-fault containment.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ROpdebee/CAA-Auditor/internal/catalog"
	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/progress"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

// ResultSink is the narrow view of the aggregator the engine needs: push one
// task's result batch, failing only when the run itself must stop (the
// internal-error runaway guard, spec §4.6).
type ResultSink interface {
	Put(results []checks.Result) error
}

// Task audits one identifier against its catalog record.
type Task struct {
	Record          catalog.Record
	MaxLastModified time.Time
	Dir             string
	Identifier      string
	Client          *remote.Client
	Progress        *progress.Reporter
	Logger          *logrus.Entry
}

// Run executes the full S0-S3 sequence, converting any unhandled error into
// a single InternalError::<Kind> skip (spec §4.4, §4.4.3, §8 invariant #1),
// then reports the batch (failures.log, aggregator push, summary log). The
// returned error is non-nil only when the sink signals the run must stop
// (the runaway internal-error guard).
func (t *Task) Run(ctx context.Context, sink ResultSink) error {
	start := time.Now()
	t.Logger.Infof("STARTING AUDIT TASK FOR %s AT %s", t.Record.ID, start.Format(time.RFC1123))

	results, err := t.runCaptured(ctx)
	status := "FINISHED"
	if err != nil {
		kind := remote.ErrorKind(err)
		t.Logger.WithError(err).Error("unhandled error auditing task")
		results = []checks.Result{checks.InternalError(t.Record.ID, kind)}
		status = "FAILED"
	}

	sinkErr := t.report(results, sink)

	t.Logger.Errorf("AUDIT TASK FOR %s %s AT %s (took %.1fs)",
		t.Record.ID, status, time.Now().Format(time.RFC1123), time.Since(start).Seconds())
	return sinkErr
}

// runCaptured recovers a panic from anywhere in run and turns it into an
// error, mirroring the engine boundary's catch-all (spec §4.4.3, §7).
func (t *Task) runCaptured(ctx context.Context) (results []checks.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.run(ctx)
}

func (t *Task) run(ctx context.Context) ([]checks.Result, error) {
	base := checks.BaseCategory(t.Record.State)
	c := checks.NewChecker(t.Record.ID, base, t.Logger)

	var metaRaw map[string]any
	err := t.Progress.RunStage(progress.StageFetch, func() error {
		var ferr error
		metaRaw, ferr = t.Client.Metadata(ctx, t.Logger, t.Dir, t.Identifier)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	if !c.Check("exists", len(metaRaw) > 0, "received empty metadata, item does not exist", nil) {
		return c.Results, nil
	}

	meta := remote.ParseMetadata(metaRaw)

	var pending bool
	err = t.Progress.RunStage(progress.StageFetch, func() error {
		var perr error
		pending, perr = t.Client.HasPendingTasks(ctx, t.Logger, t.Identifier)
		return perr
	})
	if err != nil {
		return nil, err
	}
	if !c.CheckSkip("has pending tasks", !pending, "item has pending tasks and may get modified later", nil) {
		return c.Results, nil
	}

	if !c.CheckSkip("darkened", !meta.IsDark, "item is darkened, cannot audit", nil) {
		return c.Results, nil
	}

	if !c.CheckSkip("ia modified", t.isNotRecentlyModified(meta), "item was modified after the catalog state", nil) {
		return c.Results, nil
	}

	switch t.Record.State {
	case "active", "empty":
		if err := t.runActiveChecks(ctx, c, meta); err != nil {
			return nil, err
		}
	case "possibly_deleted", "merged":
		t.runDeletedChecks(c, meta)
	}

	return c.Results, nil
}

var modifiedExempt = map[string]bool{"__ia_thumb.jpg": true}

// isNotRecentlyModified implements the "ia modified" precondition: the item
// is still auditable if its reported last-modified time predates the
// catalog state, or if no original file (other than the two well-known
// exemptions) carries a newer mtime (spec §4.4 S1.5).
func (t *Task) isNotRecentlyModified(meta *remote.Metadata) bool {
	if meta.LastModified.Before(t.MaxLastModified) {
		return true
	}
	if meta.Files == nil {
		return true
	}
	exempt := map[string]bool{fmt.Sprintf("mbid-%s_files.xml", t.Record.ID): true}
	for _, fe := range meta.Files.Originals() {
		if modifiedExempt[fe.Name] || exempt[fe.Name] {
			continue
		}
		if fe.MTime.After(t.MaxLastModified) {
			return false
		}
	}
	return true
}
