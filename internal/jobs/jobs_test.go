package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"log/slog"

	"github.com/prepdeck/backend/internal/db"
	"github.com/prepdeck/backend/internal/jobs"
	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/internal/repository/sqlite"
)

func setupQueue(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	// use shared in-memory DB so multiple connections see the same schema
	d, err := db.New(ctx, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.Migrate(ctx, d); err != nil {
		d.Close()
		t.Fatalf("migrate: %v", err)
	}
	return sqlite.New(d), func() { d.Close() }
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupQueue(t)
	defer cleanup()

	handled := make(chan struct{}, 1)
	handlers := map[string]jobs.Handler{
		"test": func(ctx context.Context, j *models.QueueJob) error {
			handled <- struct{}{}
			return nil
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, slog.Default(), 1)
	pool.Start(ctx)
	defer pool.Stop()

	if _, err := pool.Enqueue(ctx, "test", map[string]string{"foo": "bar"}, 10, 3); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-handled:
		// ok
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}
}

func TestJobRunsOnceAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupQueue(t)
	defer cleanup()

	var calls atomic.Int32
	handlers := map[string]jobs.Handler{
		"slow": func(ctx context.Context, j *models.QueueJob) error {
			calls.Add(1)
			// stay in flight long enough for every other worker to poll
			time.Sleep(2 * time.Second)
			return nil
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, slog.Default(), 4)
	pool.Start(ctx)
	defer pool.Stop()

	if _, err := pool.Enqueue(ctx, "slow", map[string]string{}, 10, 3); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	time.Sleep(3 * time.Second)
	if got := calls.Load(); got != 1 {
		t.Fatalf("job ran %d times, want exactly 1", got)
	}
}

func TestPermanentErrorSkipsRetry(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupQueue(t)
	defer cleanup()

	calls := make(chan struct{}, 10)
	handlers := map[string]jobs.Handler{
		"perm": func(ctx context.Context, j *models.QueueJob) error {
			calls <- struct{}{}
			return jobs.Permanent(errors.New("bad input"))
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, slog.Default(), 1)
	pool.Start(ctx)
	defer pool.Stop()

	if _, err := pool.Enqueue(ctx, "perm", map[string]string{}, 10, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}

	// a permanent error must not be retried even though attempts remain
	select {
	case <-calls:
		t.Fatalf("permanent error was retried")
	case <-time.After(2 * time.Second):
	}
}

func TestPermanentWrapping(t *testing.T) {
	if jobs.Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) should be nil")
	}
	base := errors.New("boom")
	wrapped := jobs.Permanent(base)
	if !jobs.IsPermanent(wrapped) {
		t.Fatalf("expected wrapped error to be permanent")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected wrapped error to unwrap to base")
	}
	if jobs.IsPermanent(base) {
		t.Fatalf("plain error must not be permanent")
	}
}

func TestBackoffDuration(t *testing.T) {
	if d := jobs.BackoffDuration(0); d != time.Second {
		t.Fatalf("attempt 0: expected 1s got %v", d)
	}
	if d := jobs.BackoffDuration(2); d != 4*time.Second {
		t.Fatalf("attempt 2: expected 4s got %v", d)
	}
	if d := jobs.BackoffDuration(20); d != 5*time.Minute {
		t.Fatalf("attempt 20: expected cap 5m got %v", d)
	}
}
