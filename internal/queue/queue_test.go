package queue

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
	"github.com/google/uuid"
	catrate "github.com/joeycumines/go-catrate"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	q, err := Open(dbPath, nil, Config{MaxRetries: 3, RateLimitPerMinute: 100})
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func newTestJob(orderID *string) *Job {
	return &Job{
		ID:           uuid.NewString(),
		RestaurantID: "rest_1",
		OrderID:      orderID,
		OrderNumber:  "42",
		Station:      "kitchen",
	}
}

func strPtr(s string) *string { return &s }

func TestEnqueueAndGetPendingJobs(t *testing.T) {
	q := openTestQueue(t)
	job := newTestJob(strPtr("order_1"))
	items := []Item{{Quantity: 2, Name: "Burger"}}

	if err := q.Enqueue(job, items); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := q.GetPendingJobs(5)
	if err != nil {
		t.Fatalf("get pending jobs: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].ID != job.ID {
		t.Errorf("pending[0].ID = %q, want %q", pending[0].ID, job.ID)
	}

	decoded, err := q.DecryptItems(pending[0])
	if err != nil {
		t.Fatalf("decrypt items: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "Burger" {
		t.Errorf("decoded items = %+v, want one Burger item", decoded)
	}
}

func TestEnqueueDedupSkipsDuplicateOrder(t *testing.T) {
	q := openTestQueue(t)
	orderID := "order_dup"

	first := newTestJob(&orderID)
	if err := q.Enqueue(first, nil); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}

	second := newTestJob(&orderID)
	if err := q.Enqueue(second, nil); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	pending, err := q.GetPendingJobs(10)
	if err != nil {
		t.Fatalf("get pending jobs: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1 (duplicate should have been skipped)", len(pending))
	}
}

func TestEnqueueRateLimit(t *testing.T) {
	q := openTestQueue(t)
	q.cfg.RateLimitPerMinute = 2
	q.rate = catrate.NewLimiter(map[time.Duration]int{time.Minute: 2})

	for i := 0; i < 2; i++ {
		job := newTestJob(nil)
		if err := q.Enqueue(job, nil); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	job := newTestJob(nil)
	err := q.Enqueue(job, nil)
	if err == nil {
		t.Fatal("expected third enqueue within the window to be rate-limited")
	}
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("expected errors.Is(err, apperr.ErrRateLimited), got %v", err)
	}
}

func TestMarkPrintingCompletedFailed(t *testing.T) {
	q := openTestQueue(t)
	job := newTestJob(nil)
	if err := q.Enqueue(job, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.MarkPrinting(job.ID); err != nil {
		t.Fatalf("mark printing: %v", err)
	}
	count, err := q.GetProcessingCount()
	if err != nil {
		t.Fatalf("get processing count: %v", err)
	}
	if count != 1 {
		t.Fatalf("processing count = %d, want 1", count)
	}

	if err := q.MarkCompleted(job.ID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	stats, err := q.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Completed != 1 {
		t.Fatalf("stats.Completed = %d, want 1", stats.Completed)
	}
}

func TestMarkFailedAndRetryJob(t *testing.T) {
	q := openTestQueue(t)
	job := newTestJob(nil)
	if err := q.Enqueue(job, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.MarkFailed(job.ID, "printer offline"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := q.RetryJob(job.ID); err != nil {
		t.Fatalf("retry job: %v", err)
	}

	// RetryJob scheduled retry_after in the future; backdate it so the
	// job is eligible now.
	past := time.Now().Add(-time.Second).Unix()
	if err := q.db.Model(&Job{}).Where("id = ?", job.ID).Update("retry_after", past).Error; err != nil {
		t.Fatalf("backdate retry_after: %v", err)
	}

	pending, err := q.GetPendingJobs(10)
	if err != nil {
		t.Fatalf("get pending jobs: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == job.ID {
			found = true
			if p.RetryCount != 2 {
				t.Errorf("retry count = %d, want 2 (MarkFailed and RetryJob each add one)", p.RetryCount)
			}
		}
	}
	if !found {
		t.Error("retried job should reappear in pending jobs once retry_after elapses")
	}
}

func TestRetryDelaySecondsCapsAtSixty(t *testing.T) {
	cases := []struct {
		retryCount int
		want       int64
	}{
		{0, 2},
		{1, 4},
		{2, 8},
		{5, 60},
		{10, 60},
	}
	for _, c := range cases {
		got := retryDelaySeconds(c.retryCount)
		if got != c.want {
			t.Errorf("retryDelaySeconds(%d) = %d, want %d", c.retryCount, got, c.want)
		}
	}
}

func TestEscalatePriorityClampsToUrgent(t *testing.T) {
	q := openTestQueue(t)
	job := newTestJob(nil)
	job.Priority = PriorityLow
	if err := q.Enqueue(job, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.EscalatePriority(job.ID, -5); err != nil {
		t.Fatalf("escalate priority: %v", err)
	}

	pending, err := q.GetPendingJobs(10)
	if err != nil {
		t.Fatalf("get pending jobs: %v", err)
	}
	if len(pending) != 1 || pending[0].Priority != PriorityUrgent {
		t.Fatalf("priority = %v, want clamped to PriorityUrgent", pending)
	}
}

func TestCleanupOldJobsRemovesOnlyStaleTerminalJobs(t *testing.T) {
	q := openTestQueue(t)
	job := newTestJob(nil)
	if err := q.Enqueue(job, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.MarkCompleted(job.ID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	old := time.Now().Add(-8 * 24 * time.Hour).Unix()
	if err := q.db.Model(&Job{}).Where("id = ?", job.ID).Update("completed_at", old).Error; err != nil {
		t.Fatalf("backdate completed_at: %v", err)
	}

	if err := q.CleanupOldJobs(); err != nil {
		t.Fatalf("cleanup old jobs: %v", err)
	}

	stats, err := q.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("stats.Total = %d, want 0 after cleanup", stats.Total)
	}
}

func TestClearAll(t *testing.T) {
	q := openTestQueue(t)
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(newTestJob(nil), nil); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if err := q.ClearAll(); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	stats, err := q.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("stats.Total = %d, want 0", stats.Total)
	}
}
