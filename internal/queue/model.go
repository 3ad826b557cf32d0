package queue

import "time"

// Priority levels; lower number dequeues first.
const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityNormal = 3
	PriorityLow    = 4

	// AgingThresholdSecs: after this many seconds waiting, a pending
	// job's effective priority is boosted by one level.
	AgingThresholdSecs = 300
)

// Status values, kept in sync with the remote edge function's
// CHECK constraint — see original_source/src-tauri/src/status.rs.
const (
	StatusPending  = "pending"
	StatusPrinting = "printing"
	StatusDone     = "completed"
	StatusFailed   = "failed"
)

// Item mirrors escpos.Item for JSON (de)serialization into the items
// column.
type Item struct {
	Quantity  int      `json:"quantity"`
	Name      string   `json:"name"`
	Modifiers []string `json:"modifiers"`
	Notes     string   `json:"notes,omitempty"`
}

// Job is one print job row. ItemsCipher holds the AES-GCM envelope
// around the serialized []Item payload (see crypto.go), or plain JSON
// when the queue has no key; callers decode it with Queue.DecryptItems.
type Job struct {
	ID           string `gorm:"primaryKey"`
	RestaurantID string `gorm:"index"`
	OrderID      *string
	OrderNumber  string
	Station      string
	StationID    *string
	PrinterID    *string
	ItemsCipher  []byte `gorm:"column:items"`
	TableNumber  *string
	CustomerName *string
	OrderType    *string
	Priority     int `gorm:"index:idx_priority,priority:1"`
	Timestamp    int64
	Status       string `gorm:"index"`
	RetryCount   int
	ErrorMessage *string
	CreatedAt    int64 `gorm:"autoCreateTime:false;index:idx_priority,priority:2"`
	ProcessingAt *int64
	CompletedAt  *int64
	RetryAfter   *int64
}

func (Job) TableName() string { return "print_jobs" }

// JobLogEntry is an append-only local record of job lifecycle events,
// kept even while the remote edge is unreachable. Queue.GetJobHistory
// reads it back; /api/queue/stats does not include it.
type JobLogEntry struct {
	ID        uint `gorm:"primaryKey"`
	JobID     string
	Event     string
	Detail    string
	CreatedAt time.Time
}

func (JobLogEntry) TableName() string { return "job_log_entries" }
