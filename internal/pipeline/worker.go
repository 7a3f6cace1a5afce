package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"storyreel/internal/jobs"
	"storyreel/internal/logging"
)

const defaultPollInterval = 2 * time.Second

// Queue is the slice of jobs.Store the worker reads from.
type Queue interface {
	NextPending(ctx context.Context) (*jobs.Job, error)
	ResetStuckProcessing(ctx context.Context) (int64, error)
}

// JobRunner renders a single job.
type JobRunner interface {
	Run(ctx context.Context, job *jobs.Job) error
}

// Worker runs pending jobs one at a time until its context is cancelled.
type Worker struct {
	queue        Queue
	runner       JobRunner
	pollInterval time.Duration
	logger       *slog.Logger
	wake         chan struct{}

	mu      sync.Mutex
	running bool
	current string
	lastErr error
}

// NewWorker builds a worker. A non-positive interval uses two seconds.
func NewWorker(queue Queue, runner JobRunner, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Worker{
		queue:        queue,
		runner:       runner,
		pollInterval: pollInterval,
		logger:       logging.NewComponentLogger(logger, "worker"),
		wake:         make(chan struct{}, 1),
	}
}

// Notify wakes an idle worker so a freshly queued job starts without waiting
// for the next poll.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Status reports whether the loop is running and the job in flight, if any.
func (w *Worker) Status() (running bool, currentJob string, lastErr error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running, w.current, w.lastErr
}

// Run blocks until ctx is cancelled. Job failures are recorded on the job and
// never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if n, err := w.queue.ResetStuckProcessing(ctx); err != nil {
		logging.WarnWithContext(w.logger, "reset stuck jobs failed", "job_reset_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
			logging.String(logging.FieldImpact, "interrupted jobs stay in their last status"),
		)
	} else if n > 0 {
		w.logger.Info("requeued interrupted jobs", logging.Int64("count", n))
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := w.queue.NextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.setLastError(err)
			logging.ErrorWithContext(w.logger, "failed to fetch next job", "job_fetch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
			w.wait(ctx)
			continue
		}
		if job == nil {
			w.wait(ctx)
			continue
		}

		w.setCurrent(job.ID)
		runErr := w.runner.Run(ctx, job)
		w.setCurrent("")
		if runErr != nil {
			w.setLastError(runErr)
			if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
				return nil
			}
		}
	}
}

func (w *Worker) wait(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.wake:
	case <-timer.C:
	}
}

func (w *Worker) setCurrent(id string) {
	w.mu.Lock()
	w.current = id
	w.mu.Unlock()
}

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}
