package testsupport

import (
	"context"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/jobs"
)

// NewJobStore opens a jobs.Store under a fresh temp config and registers cleanup.
func NewJobStore(t testing.TB) *jobs.Store {
	t.Helper()
	return MustOpenStore(t, NewConfig(t))
}

// MustOpenStore opens a jobs.Store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob enqueues a job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, topic string, duration float64) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), topic, duration)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
