package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBufferFlushWritesEntries(t *testing.T) {
	buf := &Buffer{}
	logger := NewTaskLogger(buf, false)
	logger.Info("first")
	logger.WithField("mbid", "aaaa").Warn("second")

	path := filepath.Join(t.TempDir(), "audit_log")
	if err := buf.Flush(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := readFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(content, "first") || !strings.Contains(content, "second") {
		t.Fatalf("expected both log lines in flushed content, got %q", content)
	}
	if !strings.Contains(content, "mbid=aaaa") {
		t.Fatalf("expected field to be rendered, got %q", content)
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == "" || b == "" || a == b {
		t.Fatalf("expected distinct non-empty run ids, got %q and %q", a, b)
	}
}

func TestNewRunLoggerCarriesRunID(t *testing.T) {
	entry := NewRunLogger("run-123")
	if got := entry.Data["run"]; got != "run-123" {
		t.Fatalf("expected run field to be set, got %v", got)
	}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
