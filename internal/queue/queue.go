// Package queue implements the durable, encrypted, priority-aged job
// queue: enqueue with dedup and rate limiting, priority-aging dequeue,
// status transitions, retry backoff, and shutdown flush.
package queue

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
	catrate "github.com/joeycumines/go-catrate"
	"gorm.io/gorm"
)

// Config tunes retry/backoff and rate-limit behavior.
type Config struct {
	MaxRetries         int
	RateLimitPerMinute int
}

func DefaultConfig() Config {
	return Config{MaxRetries: 3, RateLimitPerMinute: 100}
}

// Queue is the durable job store for one restaurant location.
type Queue struct {
	db   *gorm.DB
	cfg  Config
	key  []byte // hex-encoded AES key, held for the process lifetime
	rate *catrate.Limiter

	mu sync.Mutex // serializes writes the way the source's single tokio Mutex<Connection> did
}

// Open creates (or reopens) the queue database at dbPath, applies
// migrations, and wires a token-bucket rate limiter. hexKey is the
// PBKDF2-derived key from DeriveKey; pass nil to disable item
// encryption (e.g. in tests).
func Open(dbPath string, hexKey []byte, cfg Config) (*Queue, error) {
	if cfg.RateLimitPerMinute == 0 {
		cfg = DefaultConfig()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, apperr.QueueWrap(err, "create database directory")
		}
	}

	db, err := openGorm(dbPath)
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	limiter := catrate.NewLimiter(map[time.Duration]int{
		time.Minute: cfg.RateLimitPerMinute,
	})

	return &Queue{db: db, cfg: cfg, key: hexKey, rate: limiter}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Job{}, &JobLogEntry{}); err != nil {
		return apperr.QueueWrap(err, "auto-migrate schema")
	}

	// Status vocabulary unification: 'processing' -> 'printing'.
	res := db.Model(&Job{}).Where("status = ?", "processing").Update("status", StatusPrinting)
	if res.Error != nil {
		return apperr.QueueWrap(res.Error, "status migration")
	}
	if res.RowsAffected > 0 {
		log.Printf("component=queue migrated %d jobs from 'processing' to 'printing'", res.RowsAffected)
	}

	return nil
}

// Enqueue inserts a new job after a rate-limit check and a dedup
// check (same order_id + station, status pending/printing, created in
// the last 5 minutes). Test prints (no OrderID) skip dedup. Returns an
// apperr matching apperr.ErrRateLimited on rate-limit rejection; a
// detected duplicate is a silent no-op success, matching the source's
// enqueue().
func (q *Queue) Enqueue(j *Job, items []Item) error {
	if _, ok := q.rate.Allow(j.RestaurantID); !ok {
		return apperr.RateLimited("too many print jobs per minute for restaurant %s", j.RestaurantID)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if j.OrderID != nil {
		cutoff := time.Now().Add(-5 * time.Minute).Unix()
		var count int64
		err := q.db.Model(&Job{}).
			Where("order_id = ? AND station = ? AND status IN ? AND created_at > ?",
				*j.OrderID, j.Station, []string{StatusPending, StatusPrinting}, cutoff).
			Count(&count).Error
		if err != nil {
			return apperr.QueueWrap(err, "check duplicate")
		}
		if count > 0 {
			log.Printf("component=queue duplicate job order_id=%s station=%s skipped", *j.OrderID, j.Station)
			return nil
		}
	}

	cipher, err := encryptItemsOrPlain(q.key, items)
	if err != nil {
		return err
	}
	j.ItemsCipher = cipher
	if j.CreatedAt == 0 {
		j.CreatedAt = time.Now().Unix()
	}
	if j.Priority == 0 {
		j.Priority = PriorityNormal
	}
	if j.Status == "" {
		j.Status = StatusPending
	}

	if err := q.db.Create(j).Error; err != nil {
		return apperr.QueueWrap(err, "insert job")
	}
	return nil
}

func encryptItemsOrPlain(key []byte, items []Item) ([]byte, error) {
	if key == nil {
		return jsonMarshalPlain(items)
	}
	return encryptItems(key, items)
}

func jsonMarshalPlain(items []Item) ([]byte, error) {
	return jsonMarshal(items)
}

// pendingRow is the scan target for the aged-priority query: it
// reuses Job's column layout without decrypting items eagerly.
type pendingRow = Job

// GetPendingJobs returns up to limit pending jobs whose retry_after
// has elapsed, ordered by effective priority (aged) then creation
// time: effective_priority = MAX(1, priority - waited_secs/300).
func (q *Queue) GetPendingJobs(limit int) ([]*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().Unix()
	var rows []pendingRow
	err := q.db.Raw(`
		SELECT * FROM print_jobs
		WHERE status = ?
		  AND (retry_after IS NULL OR retry_after <= ?)
		ORDER BY
			MAX(1, priority - (? - created_at) / ?) ASC,
			created_at ASC
		LIMIT ?
	`, StatusPending, now, now, AgingThresholdSecs, limit).Scan(&rows).Error
	if err != nil {
		return nil, apperr.QueueWrap(err, "get pending jobs")
	}

	out := make([]*Job, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// DecryptItems decrypts (or plain-decodes) a job's item payload.
func (q *Queue) DecryptItems(j *Job) ([]Item, error) {
	if q.key == nil {
		var items []Item
		if err := jsonUnmarshal(j.ItemsCipher, &items); err != nil {
			return nil, apperr.QueueWrap(err, "parse items")
		}
		return items, nil
	}
	return decryptItems(q.key, j.ItemsCipher)
}

func (q *Queue) MarkPrinting(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().Unix()
	err := q.db.Model(&Job{}).Where("id = ?", jobID).
		Updates(map[string]any{"status": StatusPrinting, "processing_at": now}).Error
	if err != nil {
		return apperr.QueueWrap(err, "mark printing")
	}
	return nil
}

func (q *Queue) MarkCompleted(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().Unix()
	err := q.db.Model(&Job{}).Where("id = ?", jobID).
		Updates(map[string]any{"status": StatusDone, "completed_at": now}).Error
	if err != nil {
		return apperr.QueueWrap(err, "mark completed")
	}
	return nil
}

func (q *Queue) MarkFailed(jobID, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().Unix()
	err := q.db.Model(&Job{}).Where("id = ?", jobID).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": errMsg,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"completed_at":  now,
		}).Error
	if err != nil {
		return apperr.QueueWrap(err, "mark failed")
	}
	return nil
}

// RetryJob resets a job to pending with an incremented retry count and
// a retry_after timestamp computed via exponential backoff:
// delay = min(2^retry_count * 2, 60) seconds, using the post-increment
// retry_count (so the first retry, retry_count 0 -> 1, backs off 4s).
// No-op once retry_count reaches MaxRetries (matching the source's
// "retry_count < 3" guard).
func (q *Queue) RetryJob(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var job Job
	if err := q.db.Select("retry_count").Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Queue("job %s not found", jobID)
		}
		return apperr.QueueWrap(err, "load retry_count")
	}

	delay := retryDelaySeconds(job.RetryCount + 1)
	retryAfter := time.Now().Unix() + delay

	res := q.db.Model(&Job{}).
		Where("id = ? AND retry_count < ?", jobID, q.cfg.MaxRetries).
		Updates(map[string]any{
			"status":        StatusPending,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"processing_at": nil,
			"retry_after":   retryAfter,
		})
	if res.Error != nil {
		return apperr.QueueWrap(res.Error, "retry job")
	}
	return nil
}

// retryDelaySeconds computes min(2^retryCount * 2, 60).
func retryDelaySeconds(retryCount int) int64 {
	delay := int64(1) << uint(retryCount) * 2
	if delay > 60 {
		delay = 60
	}
	return delay
}

// EscalatePriority sets a pending job's priority to newPriority (lower
// number = more urgent), clamped to never go below PriorityUrgent.
func (q *Queue) EscalatePriority(jobID string, newPriority int) error {
	clamped := newPriority
	if clamped < PriorityUrgent {
		clamped = PriorityUrgent
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.db.Model(&Job{}).
		Where("id = ? AND status = ?", jobID, StatusPending).
		Update("priority", clamped).Error
	if err != nil {
		return apperr.QueueWrap(err, "escalate priority")
	}
	return nil
}

// Stats reports queue-wide counts by status.
type Stats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Printing  int64 `json:"printing"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

func (q *Queue) GetStats() (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	if err := q.db.Model(&Job{}).Count(&s.Total).Error; err != nil {
		return s, apperr.QueueWrap(err, "count total")
	}
	counts := []struct {
		status string
		dst    *int64
	}{
		{StatusPending, &s.Pending},
		{StatusPrinting, &s.Printing},
		{StatusDone, &s.Completed},
		{StatusFailed, &s.Failed},
	}
	for _, c := range counts {
		if err := q.db.Model(&Job{}).Where("status = ?", c.status).Count(c.dst).Error; err != nil {
			return s, apperr.QueueWrap(err, "count by status")
		}
	}
	return s, nil
}

// CleanupOldJobs deletes completed/failed jobs older than 7 days.
func (q *Queue) CleanupOldJobs() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := time.Now().Add(-7 * 24 * time.Hour).Unix()
	err := q.db.Where("status IN ? AND completed_at < ?", []string{StatusDone, StatusFailed}, cutoff).
		Delete(&Job{}).Error
	if err != nil {
		return apperr.QueueWrap(err, "cleanup old jobs")
	}
	return nil
}

// ClearAll deletes every job — a factory-reset admin operation.
func (q *Queue) ClearAll() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.db.Exec("DELETE FROM print_jobs").Error; err != nil {
		return apperr.QueueWrap(err, "clear all jobs")
	}
	return nil
}

// GetProcessingCount returns the number of jobs currently printing,
// used by the processor's shutdown drain loop.
func (q *Queue) GetProcessingCount() (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var count int64
	err := q.db.Model(&Job{}).Where("status = ?", StatusPrinting).Count(&count).Error
	if err != nil {
		return 0, apperr.QueueWrap(err, "count processing jobs")
	}
	return count, nil
}

// FlushDB checkpoints the WAL to the main database file and forces
// synchronous=FULL, called during graceful shutdown.
func (q *Queue) FlushDB() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	log.Println("component=queue flushing sqlite queue database to disk")
	if err := q.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return apperr.QueueWrap(err, "checkpoint wal")
	}
	if err := q.db.Exec("PRAGMA synchronous = FULL").Error; err != nil {
		return apperr.QueueWrap(err, "set synchronous=full")
	}
	log.Println("component=queue sqlite queue database flushed")
	return nil
}

// InsertJobLog appends a lifecycle event for a job, so history survives
// even while the remote edge is unreachable.
func (q *Queue) InsertJobLog(jobID, event, detail string) error {
	entry := JobLogEntry{JobID: jobID, Event: event, Detail: detail, CreatedAt: time.Now()}
	if err := q.db.Create(&entry).Error; err != nil {
		return apperr.QueueWrap(err, "insert job log")
	}
	return nil
}

func (q *Queue) GetJobHistory(jobID string, limit int) ([]JobLogEntry, error) {
	var entries []JobLogEntry
	err := q.db.Where("job_id = ?", jobID).Order("created_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, apperr.QueueWrap(err, "get job history")
	}
	return entries, nil
}

func (q *Queue) Close() error {
	sqlDB, err := q.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
