package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"storyreel/internal/api"
	"storyreel/internal/config"
	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/pipeline"
)

// Daemon coordinates the render worker and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *jobs.Store
	worker *pipeline.Worker
	server *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Worker       WorkerStatus
	Jobs         jobs.Summary
	JobDBPath    string
	LockFilePath string
	APIAddress   string
}

// WorkerStatus mirrors pipeline.Worker.Status.
type WorkerStatus struct {
	Running    bool
	CurrentJob string
	LastError  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, worker *pipeline.Worker, server *api.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || worker == nil || server == nil {
		return nil, errors.New("daemon requires config, store, worker, and api server")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		worker:   worker,
		server:   server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, starts the API listener, and launches
// the render worker.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another storyreel instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx, d.cfg.API.Bind); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.worker.Run(runCtx); err != nil {
			d.logger.Error("render worker exited", logging.Error(err))
		}
	}()

	d.cancel = cancel
	d.done = done
	d.running.Store(true)
	d.logger.Info("storyreel daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()),
	)
	return nil
}

// Stop stops the worker and API and releases the instance lock. The job in
// flight is marked failed by the worker as it unwinds.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
		)
	}
	d.running.Store(false)
	d.logger.Info("storyreel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	running, current, lastErr := d.worker.Status()
	worker := WorkerStatus{Running: running, CurrentJob: current}
	if lastErr != nil {
		worker.LastError = lastErr.Error()
	}
	status := Status{
		Running:      d.running.Load(),
		Worker:       worker,
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.server.Addr(),
	}
	if summary, err := d.store.Summary(ctx); err == nil {
		status.Jobs = summary
	} else {
		d.logger.Warn("job summary unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_summary_failed"),
		)
	}
	return status
}
