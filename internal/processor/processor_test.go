package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eatsome/printer-daemon/internal/breaker"
	"github.com/eatsome/printer-daemon/internal/config"
	"github.com/eatsome/printer-daemon/internal/printer/driver"
	"github.com/eatsome/printer-daemon/internal/queue"
	"github.com/google/uuid"
)

func openTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	q, err := queue.Open(dbPath, nil, queue.Config{MaxRetries: 3, RateLimitPerMinute: 1000})
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func strPtr(s string) *string { return &s }

// fakeDriver always fails or always succeeds, and counts calls.
type fakeDriver struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (d *fakeDriver) Print(ctx context.Context, address string, data []byte) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return d.err
}

func (d *fakeDriver) ProbeStatus(ctx context.Context, address string) (driver.HwStatus, error) {
	return driver.HwStatus{Online: true}, nil
}

func (d *fakeDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeResolver struct {
	printers map[string]config.PrinterConfig
}

func (r *fakeResolver) Printer(id string) (config.PrinterConfig, bool) {
	p, ok := r.printers[id]
	return p, ok
}

func newTestProcessor(t *testing.T, q *queue.Queue, fd *fakeDriver) *Processor {
	t.Helper()
	drivers := driver.NewRegistry()
	drivers.Register("network", func() driver.Driver { return fd })

	resolver := &fakeResolver{printers: map[string]config.PrinterConfig{
		"printer-1": {
			ID:             "printer-1",
			ConnectionType: config.ConnNetwork,
			Address:        "127.0.0.1:9100",
			Capabilities:   config.Capabilities{MaxWidth: 48},
		},
	}}

	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: 100, // high enough that these tests never trip the breaker
		Timeout:          time.Minute,
		TrackingWindow:   time.Minute,
	})

	return New(q, breakers, drivers, resolver, nil, nil, 2)
}

func enqueueTestJob(t *testing.T, q *queue.Queue, printerID string) *queue.Job {
	t.Helper()
	job := &queue.Job{
		ID:           uuid.NewString(),
		RestaurantID: "rest_1",
		OrderNumber:  "1",
		Station:      "hot",
		PrinterID:    strPtr(printerID),
	}
	items := []queue.Item{{Quantity: 1, Name: "Burger"}}
	if err := q.Enqueue(job, items); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func TestRunJobSuccessMarksCompletedAndPrints(t *testing.T) {
	q := openTestQueue(t)
	fd := &fakeDriver{}
	p := newTestProcessor(t, q, fd)
	job := enqueueTestJob(t, q, "printer-1")

	ctx := context.Background()
	pending, err := q.GetPendingJobs(1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending job, got %d, err=%v", len(pending), err)
	}
	p.runJob(ctx, pending[0])

	stats, err := q.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Completed != 1 {
		t.Fatalf("Completed = %d, want 1", stats.Completed)
	}
	if fd.callCount() != 1 {
		t.Fatalf("driver Print called %d times, want 1", fd.callCount())
	}
	_ = job
}

func TestRunJobFailureRetriesBeforeTerminalFailure(t *testing.T) {
	q := openTestQueue(t)
	fd := &fakeDriver{err: fmt.Errorf("simulated printer fault")}
	p := newTestProcessor(t, q, fd)
	enqueueTestJob(t, q, "printer-1")

	ctx := context.Background()

	// First failure: retry_count 0 -> 1, goes back to pending (not failed).
	pending, err := q.GetPendingJobs(1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending job, got %d, err=%v", len(pending), err)
	}
	job := pending[0]
	p.runJob(ctx, job)

	stats, err := q.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Failed != 0 {
		t.Fatalf("Failed = %d after first failure, want 0 (should still be retryable)", stats.Failed)
	}

	// Wait out the real backoff so GetPendingJobs picks the job up again.
	// retry_count is now 1, so the delay RetryJob computed was
	// retryDelaySeconds(1) = 4s.
	waitPastBackoff(4 * time.Second)

	pending, err = q.GetPendingJobs(1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected the retried job to still be pending, got %d, err=%v", len(pending), err)
	}
	if pending[0].RetryCount != 1 {
		t.Fatalf("RetryCount = %d, want 1 after the first failure", pending[0].RetryCount)
	}
	p.runJob(ctx, pending[0])
	// retry_count is now 2, so the delay RetryJob computed was
	// retryDelaySeconds(2) = 8s.
	waitPastBackoff(8 * time.Second)

	pending, err = q.GetPendingJobs(1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected the twice-retried job to still be pending, got %d, err=%v", len(pending), err)
	}
	if pending[0].RetryCount != 2 {
		t.Fatalf("RetryCount = %d, want 2 after the second failure", pending[0].RetryCount)
	}

	// Third failure exhausts retries (retryCount == 3) and goes terminal.
	p.runJob(ctx, pending[0])

	stats, err = q.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("Failed = %d after exhausting retries, want 1", stats.Failed)
	}
	if fd.callCount() != 3 {
		t.Fatalf("driver Print called %d times, want 3", fd.callCount())
	}
}

// waitPastBackoff sleeps past a retry_after the queue set delay in the
// future. The queue has no direct "clear retry_after" API, so a real
// sleep past the known backoff is the simplest way to cross it without
// reaching into gorm internals.
func waitPastBackoff(delay time.Duration) {
	time.Sleep(delay + 100*time.Millisecond)
}

func TestAttemptPrintReturnsErrorForUnknownPrinter(t *testing.T) {
	q := openTestQueue(t)
	fd := &fakeDriver{}
	p := newTestProcessor(t, q, fd)
	job := enqueueTestJob(t, q, "printer-does-not-exist")

	pending, err := q.GetPendingJobs(1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending job, got %d, err=%v", len(pending), err)
	}

	_, err = p.attemptPrint(context.Background(), pending[0])
	if err == nil {
		t.Fatal("expected an error for an unresolvable printer")
	}
	_ = job
}
