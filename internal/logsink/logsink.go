// Package logsink implements the per-task structured log buffer (C8): every
// log record a task emits is intercepted by a hook and appended to an
// in-memory buffer, flushed once to the task's output directory on
// postprocess. A secondary sink writes non-task records (and, under --spam,
// everything) to stderr.
package logsink

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewRunID mints a correlation id for one audit run, carried on every
// coordinator-level log line so a user can grep one run's output out of
// concatenated stderr from several invocations.
func NewRunID() string {
	return uuid.NewString()
}

// Buffer collects formatted log lines for one task.
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

// Fire implements logrus.Hook: it appends the formatted entry to the buffer.
func (b *Buffer) Fire(entry *logrus.Entry) error {
	line := formatEntry(entry)
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
	return nil
}

// Levels implements logrus.Hook: the buffer captures every level.
func (b *Buffer) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Flush writes the buffered lines to path in one write, as required even on
// the error path (spec §5 "Resource acquisition").
func (b *Buffer) Flush(path string) error {
	b.mu.Lock()
	content := strings.Join(b.lines, "\n")
	b.mu.Unlock()
	return os.WriteFile(path, []byte(content), 0o644)
}

func formatEntry(entry *logrus.Entry) string {
	ts := entry.Time.Format("2006-01-02T15:04:05.000Z07:00")
	level := strings.ToUpper(entry.Level.String())
	line := fmt.Sprintf("%s %-7s %s", ts, level, entry.Message)
	if len(entry.Data) > 0 {
		var b strings.Builder
		for k, v := range entry.Data {
			if k == spamFieldKey {
				continue
			}
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
		line += b.String()
	}
	return line
}

const spamFieldKey = "__task_buffer__"

// NewTaskLogger builds the per-task logger: a fresh logrus.Logger whose only
// normal output is the buffer hook. When spam is true, records also go to
// stderr (the teacher's --verbose pattern, generalized to per-record spam).
func NewTaskLogger(buf *Buffer, spam bool) *logrus.Entry {
	l := logrus.New()
	if spam {
		l.SetOutput(os.Stderr)
	} else {
		l.SetOutput(discard{})
	}
	l.SetLevel(logrus.DebugLevel)
	l.AddHook(buf)
	return logrus.NewEntry(l)
}

// NewRunLogger builds the shared, non-task logger used for coordinator-level
// messages (credential errors, fatal I/O); always writes to stderr. Every
// line it emits carries runID so concurrent or repeated invocations can be
// told apart in redirected output.
func NewRunLogger(runID string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logrus.NewEntry(l).WithField("run", runID)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
