package pipeline

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ROpdebee/CAA-Auditor/internal/catalog"
	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/engine"
	"github.com/ROpdebee/CAA-Auditor/internal/logsink"
	"github.com/ROpdebee/CAA-Auditor/internal/progress"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

// envelope pairs a task record with the per-task resources the dispatcher
// hands to one worker (spec §4.5 "(Task, LogBuffer) pairs").
type envelope struct {
	record catalog.Record
	dir    string
	buf    *logsink.Buffer
	logger *logrus.Entry
}

// Dispatcher runs the bounded producer/consumer pipeline: one queuer
// goroutine feeding N workers over a channel of capacity 2*Concurrency
// (spec §4.5, §5).
type Dispatcher struct {
	Concurrency     int
	OutputDir       string
	Client          *remote.Client
	Progress        *progress.Reporter
	Aggregator      engine.ResultSink
	Spam            bool
	RunLogger       *logrus.Entry
	MaxLastModified time.Time
}

// Run drains src, dispatching every task record to a worker, and blocks
// until every task has completed (spec §4.5 shutdown sequencing). After the
// first fatal error no further tasks are started; tasks already running are
// finished before Run returns. It returns the first fatal error observed:
// either a stream read error or the aggregator's runaway-abort signal.
func (d *Dispatcher) Run(ctx context.Context, src *Source) error {
	queue := make(chan *envelope, 2*d.Concurrency)
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	var readErr error
	queuerDone := make(chan struct{})
	go func() {
		defer close(queuerDone)
		defer close(queue)
		for {
			rec, err := src.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr = err
				}
				return
			}
			dir := FanoutPath(d.OutputDir, rec.ID)
			buf := &logsink.Buffer{}
			logger := logsink.NewTaskLogger(buf, d.Spam)
			env := &envelope{record: rec, dir: dir, buf: buf, logger: logger}

			select {
			case queue <- env:
				d.Progress.TaskEnqueued()
			case <-stopCtx.Done():
				return
			}
		}
	}()

	var mu sync.Mutex
	var fatalErr error
	var wg sync.WaitGroup
	for i := 0; i < d.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Duration(rand.Float64() * float64(time.Second)))
			for env := range queue {
				if stopCtx.Err() != nil {
					continue
				}
				d.Progress.TaskRunning()
				if err := d.runOne(ctx, env); err != nil {
					mu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					mu.Unlock()
					stop()
				}
			}
		}()
	}

	<-queuerDone
	wg.Wait()

	if readErr != nil {
		return readErr
	}
	return fatalErr
}

func (d *Dispatcher) runOne(ctx context.Context, env *envelope) error {
	if err := d.Progress.RunStage(progress.StagePreprocess, func() error {
		return os.MkdirAll(env.dir, 0o755)
	}); err != nil {
		env.logger.WithError(err).Error("failed to create task directory")
		sinkErr := d.Aggregator.Put([]checks.Result{checks.InternalError(env.record.ID, "Filesystem")})
		d.flushLog(env)
		return sinkErr
	}

	task := &engine.Task{
		Record:          env.record,
		MaxLastModified: d.MaxLastModified,
		Dir:             env.dir,
		Identifier:      "mbid-" + env.record.ID,
		Client:          d.Client,
		Progress:        d.Progress,
		Logger:          env.logger,
	}

	sinkErr := task.Run(ctx, d.Aggregator)
	d.flushLog(env)
	return sinkErr
}

func (d *Dispatcher) flushLog(env *envelope) {
	if err := d.Progress.RunStage(progress.StagePostprocess, func() error {
		return env.buf.Flush(filepath.Join(env.dir, "audit_log"))
	}); err != nil {
		d.RunLogger.WithError(err).Error("failed to flush task log buffer")
	}
}
