// Package batch runs queued batch processes in the background.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/telemetry"
)

// Processor runs one claimed batch of work. *representatives.Service implements it.
type Processor interface {
	ProcessNextRepresentatives(ctx context.Context) (representatives.BatchResult, error)
}

// maxRunsPerTick bounds how many batches one tick processes back to back.
const maxRunsPerTick = 10

// runTimeout bounds a single batch run.
const runTimeout = 10 * time.Minute

// Worker polls for open batch processes and runs them one at a time.
type Worker struct {
	proc         Processor
	logger       *slog.Logger
	pollInterval time.Duration

	mu         sync.Mutex
	started    bool               // guarded by mu
	cancelLoop context.CancelFunc // guarded by mu
	done       chan struct{}
	once       sync.Once

	runs metric.Int64Counter
}

// NewWorker creates a batch worker.
func NewWorker(proc Processor, logger *slog.Logger, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	runs, _ := telemetry.Meter("wevote/batch").Int64Counter("wevote.batch.runs",
		metric.WithDescription("Batch process runs, by outcome"),
	)
	return &Worker{
		proc:         proc,
		logger:       logger,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
		runs:         runs,
	}
}

// Start begins the poll loop. Only the first call has any effect.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		w.logger.Warn("batch: Start called more than once, ignoring")
		return
	}
	w.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancelLoop = cancel
	go w.pollLoop(loopCtx)
}

// Drain stops the poll loop and waits for the run in flight to finish, or
// for ctx to expire. No new run starts once Drain is called.
func (w *Worker) Drain(ctx context.Context) {
	w.mu.Lock()
	cancel := w.cancelLoop
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-w.done:
	case <-ctx.Done():
		w.logger.Warn("batch: drain timed out")
	}
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.once.Do(func() { close(w.done) })
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs batches until none is available, a run fails, or the cap is hit.
func (w *Worker) tick(ctx context.Context) {
	for range maxRunsPerTick {
		if ctx.Err() != nil {
			return
		}
		if !w.runOnce(ctx) {
			return
		}
	}
}

// runOnce processes one batch and reports whether another should follow.
// Stopping the loop does not cancel a run already started; runTimeout bounds it.
func (w *Worker) runOnce(ctx context.Context) bool {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
	defer cancel()

	res, err := w.proc.ProcessNextRepresentatives(runCtx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("batch: run failed", "error", err)
		}
		w.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return false
	}
	if !res.Claimed {
		return false
	}
	outcome := "released"
	if res.Completed {
		outcome = "completed"
	}
	w.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	w.logger.Debug("batch: run finished",
		"batch_process_id", res.BatchProcess.ID, "state_code", res.BatchProcess.StateCode,
		"retrieved", res.Retrieved, "failed", res.Failed, "status", res.Status.String())
	return true
}
