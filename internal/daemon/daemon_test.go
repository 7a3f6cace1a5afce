package daemon_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"storyreel/internal/api"
	"storyreel/internal/daemon"
	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/pipeline"
	"storyreel/internal/testsupport"
)

type completeRunner struct {
	store *jobs.Store
}

func (r completeRunner) Run(ctx context.Context, job *jobs.Job) error {
	return r.store.Complete(ctx, job.ID, "/tmp/"+job.ID+".mp4")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *jobs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	worker := pipeline.NewWorker(store, completeRunner{store: store}, time.Hour, logger)
	server := api.NewServer(api.Deps{Jobs: store, Worker: worker, Logger: logger})
	d, err := daemon.New(cfg, store, worker, server, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, store := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.Create(ctx, "빵집", 20); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.APIAddress == "" || strings.HasSuffix(status.APIAddress, ":0") {
		t.Fatalf("expected bound api address, got %q", status.APIAddress)
	}
	if status.Jobs.Total != 1 {
		t.Fatalf("expected 1 job in summary, got %+v", status.Jobs)
	}
	if !strings.HasSuffix(status.LockFilePath, "storyreel.lock") {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if status.Worker.Running {
		t.Fatal("expected worker loop to have exited")
	}
}

func TestDaemonRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
