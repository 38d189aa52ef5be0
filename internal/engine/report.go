package engine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
)

// report implements S3: write failures.log, push the batch to the
// aggregator, and log the per-task summary (spec §4.4 S3).
func (t *Task) report(results []checks.Result, sink ResultSink) error {
	var failures strings.Builder
	for _, r := range results {
		if r.State == checks.StateFailed {
			failures.WriteString(r.String())
			failures.WriteByte('\n')
		}
	}
	if err := os.WriteFile(filepath.Join(t.Dir, "failures.log"), []byte(failures.String()), 0o644); err != nil {
		t.Logger.WithError(err).Warn("failed to write failures.log")
	}

	sinkErr := sink.Put(results)
	if sinkErr != nil {
		t.Logger.WithError(sinkErr).Error("aggregator signalled the run must stop")
	}

	passed, failed, skipped := checks.CountByState(results)
	if passed == len(results) {
		t.Logger.Infof("All %d checks passed.", passed)
		return sinkErr
	}

	t.Logger.Infof("%d successful checks, %d failed checks, %d skipped checks.", passed, failed, skipped)
	t.Logger.Info("Summary:")
	maxLen := 0
	for _, r := range results {
		if len(r.Description) > maxLen {
			maxLen = len(r.Description)
		}
	}
	for _, r := range results {
		t.Logger.Infof("%s … %s", padRight(r.Description, maxLen), r.State)
		if r.State == checks.StateFailed && r.AdditionalData != nil {
			t.Logger.Info("    Additional failure data:")
			t.Logger.Infof("    %v", r.AdditionalData)
		}
	}
	return sinkErr
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
