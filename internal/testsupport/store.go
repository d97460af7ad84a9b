package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// SeedJob inserts a pending job with default options.
func SeedJob(t testing.TB, store *queue.Store, inputPath string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), inputPath, "small", queue.DefaultOptions())
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}
