// Package progress exposes the live progress counters and stage occupancy
// for the audit run (C7): a single counter bar with success/skipped/failed
// sub-counters, plus a status line tracking queue depth and per-stage
// concurrency.
package progress

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cheggaaa/pb"
)

// Stage is one of the seven fixed audit stages, in order (spec §4.7, GLOSSARY).
type Stage int

const (
	StagePreprocess Stage = iota
	StageFetch
	StageMeta
	StageFiles
	StageIndex
	StageReport
	StagePostprocess
	numStages
)

var stageNames = [...]string{
	"preprocess", "fetch", "meta", "files", "index", "report", "postprocess",
}

func (s Stage) String() string {
	if int(s) < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Signaler is the narrow interface the aggregator needs: exactly one of
// these three fires per task batch (spec §4.6, invariant #2).
type Signaler interface {
	TaskSuccess()
	TaskFailed()
	TaskSkipped()
}

// Reporter tracks enqueued/running/succeeded/failed/skipped counts and
// per-stage occupancy, and renders them as a live counter bar. All methods
// are synchronous and cheap; a mutex serializes access since many workers
// call concurrently (spec §4.7, §5).
type Reporter struct {
	mu         sync.Mutex
	total      int
	todo       int
	queued     int
	pending    int
	success    int
	failed     int
	skipped    int
	stageCount [numStages]int
	bar        *pb.ProgressBar
}

// New creates a reporter for a run expected to process total tasks.
func New(total int) *Reporter {
	bar := pb.New(total)
	bar.ShowCounters = true
	bar.ShowTimeLeft = true
	bar.ShowSpeed = true
	bar.SetMaxWidth(160)
	bar.Start()
	r := &Reporter{total: total, todo: total, bar: bar}
	r.refresh()
	return r
}

// TaskEnqueued is called by the queuer after a task is placed on the bounded
// work queue.
func (r *Reporter) TaskEnqueued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued++
	if r.todo > 0 {
		r.todo--
	}
	r.refresh()
}

// TaskRunning is called by a worker after it pulls a task off the queue.
func (r *Reporter) TaskRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queued > 0 {
		r.queued--
	}
	r.pending++
	r.refresh()
}

func (r *Reporter) finish() {
	if r.pending > 0 {
		r.pending--
	}
	r.bar.Increment()
}

// TaskSuccess records a task whose batch contained no failures or skips.
func (r *Reporter) TaskSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
	r.success++
	r.refresh()
}

// TaskFailed records a task whose batch's worst result was CheckFailed.
func (r *Reporter) TaskFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
	r.failed++
	r.refresh()
}

// TaskSkipped records a task whose batch's worst result was ItemSkipped.
func (r *Reporter) TaskSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
	r.skipped++
	r.refresh()
}

// EnterStage marks one more task as currently executing the given stage.
func (r *Reporter) EnterStage(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stageCount[s]++
	r.refresh()
}

// ExitStage marks a task as having left the given stage.
func (r *Reporter) ExitStage(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stageCount[s] > 0 {
		r.stageCount[s]--
	}
	r.refresh()
}

// RunStage wraps fn in an enter/exit pair that fires in strict program
// order, including on the error path (spec §4.4.1, §5).
func (r *Reporter) RunStage(s Stage, fn func() error) error {
	r.EnterStage(s)
	defer r.ExitStage(s)
	return fn()
}

func (r *Reporter) refresh() {
	parts := make([]string, 0, numStages)
	for i, name := range stageNames {
		parts = append(parts, fmt.Sprintf("%d %s", r.stageCount[i], name))
	}
	finished := r.success + r.failed + r.skipped
	status := fmt.Sprintf(
		"%d to do, %d queued, %d in progress (%s), %d finished (%d successful, %d failed, %d skipped)",
		r.todo, r.queued, r.pending, strings.Join(parts, ", "), finished, r.success, r.failed, r.skipped)
	r.bar.Prefix(status + " ")
}

// Close finalizes the bar output.
func (r *Reporter) Close() {
	r.bar.Finish()
}
