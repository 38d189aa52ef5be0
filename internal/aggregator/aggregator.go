// Package aggregator implements C6: it receives per-task result batches,
// spools them to a compressed on-disk journal, and later produces
// logs/CSV/tables from that journal by streaming it back in.
package aggregator

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/progress"
)

// MaxInternalErrors bounds the number of InternalError::* results tolerated
// in a single run before the aggregator aborts it (spec §4.6, §7, §8
// scenario 6).
const MaxInternalErrors = 10

// ErrRunaway is returned once more than MaxInternalErrors InternalError
// results have been observed.
var ErrRunaway = errors.New("aggregator: more than 10 InternalError results this run, aborting")

// JournalName is the compressed, line-oriented journal file (spec §3, §6).
const JournalName = "results_cache.gz"

// Aggregator is the single, not-thread-shared instance exposed to workers
// through the thread-safe Put API (spec §4.6, §5).
type Aggregator struct {
	mu             sync.Mutex
	file           *os.File
	gz             *gzip.Writer
	bw             *bufio.Writer
	reporter       progress.Signaler
	internalErrors int
	JournalPath    string
}

// New opens a fresh journal file under outputDir.
func New(outputDir string, reporter progress.Signaler) (*Aggregator, error) {
	path := filepath.Join(outputDir, JournalName)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	gz := gzip.NewWriter(f)
	return &Aggregator{
		file: f, gz: gz, bw: bufio.NewWriter(gz),
		reporter: reporter, JournalPath: path,
	}, nil
}

// Put appends one task's result batch to the journal and signals exactly
// one progress transition, chosen by precedence skipped > failed > success
// (spec §4.6, §8 invariants #1, #2, #3).
func (a *Aggregator) Put(results []checks.Result) error {
	if len(results) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range results {
		if _, err := fmt.Fprintf(a.bw, "%s\t%s\t%s\n", r.MBID, r.Description, r.State); err != nil {
			return fmt.Errorf("writing journal entry: %w", err)
		}
		if strings.HasPrefix(r.Description, "InternalError::") {
			a.internalErrors++
		}
	}
	if err := a.bw.Flush(); err != nil {
		return fmt.Errorf("flushing journal: %w", err)
	}
	if err := a.gz.Flush(); err != nil {
		return fmt.Errorf("flushing journal gzip stream: %w", err)
	}

	switch checks.Precedence(results) {
	case checks.StateSkipped:
		a.reporter.TaskSkipped()
	case checks.StateFailed:
		a.reporter.TaskFailed()
	default:
		a.reporter.TaskSuccess()
	}

	if a.internalErrors > MaxInternalErrors {
		return ErrRunaway
	}
	return nil
}

// Close finalizes the gzip stream so the journal can be read back.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.bw.Flush(); err != nil {
		return err
	}
	if err := a.gz.Close(); err != nil {
		return err
	}
	return a.file.Close()
}
