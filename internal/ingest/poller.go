package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/eatsome/printer-daemon/internal/queue"
)

// backoffSteps mirrors job_poller.rs's BACKOFF_STEPS exactly: jobs
// found snaps the index back to 0 (3s), an empty or errored poll
// advances it, capped at the last (slowest) step.
var backoffSteps = []time.Duration{3 * time.Second, 5 * time.Second, 10 * time.Second, 15 * time.Second}

// failoverConfigInterval is how often the poller asks the edge for a
// refreshed primary->backup printer map, piggybacked on a regular poll.
const failoverConfigInterval = 300 * time.Second

// rawJob is the wire shape of one polled job row, decoded loosely
// the way job_poller.rs::parse_job reads individual JSON fields so a
// missing optional column never fails the whole batch.
type rawJob struct {
	ID           string       `json:"id"`
	OrderID      *string      `json:"order_id"`
	OrderNumber  string       `json:"order_number"`
	Station      string       `json:"station"`
	StationID    *string      `json:"station_id"`
	PrinterID    *string      `json:"printer_id"`
	Items        []queue.Item `json:"items"`
	TableNumber  *string      `json:"table_number"`
	CustomerName *string      `json:"customer_name"`
	OrderType    *string      `json:"order_type"`
	Priority     int          `json:"priority"`
	Timestamp    int64        `json:"timestamp"`
}

// Poller drives the background ingest loop: poll -> parse -> enqueue,
// with the adaptive backoff schedule and heartbeat piggyback.
type Poller struct {
	client       *Client
	queue        *queue.Queue
	restaurantID string
	printerIDs   func() []string
}

func NewPoller(client *Client, q *queue.Queue, restaurantID string, printerIDs func() []string) *Poller {
	return &Poller{client: client, queue: q, restaurantID: restaurantID, printerIDs: printerIDs}
}

// Run loops until ctx is cancelled. Each tick sleeps the current
// backoff step, polls, and adjusts the step for next time.
func (p *Poller) Run(ctx context.Context) {
	backoffIndex := 0
	lastFailoverRequest := time.Time{}

	log.Printf("component=ingest job poller started for restaurant %s", p.restaurantID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffSteps[backoffIndex]):
		}

		includeFailover := time.Since(lastFailoverRequest) >= failoverConfigInterval
		if includeFailover {
			lastFailoverRequest = time.Now()
		}

		resp, err := p.client.PollJobs(ctx, p.printerIDs(), includeFailover)
		if err != nil {
			log.Printf("component=ingest poll failed: %v", err)
			backoffIndex = advance(backoffIndex)
			continue
		}

		if len(resp.Jobs) == 0 {
			backoffIndex = advance(backoffIndex)
			continue
		}

		backoffIndex = 0
		for _, raw := range resp.Jobs {
			job, items, err := parseJob(raw, p.restaurantID)
			if err != nil {
				log.Printf("component=ingest failed to parse polled job: %v", err)
				continue
			}
			if err := p.queue.Enqueue(job, items); err != nil {
				log.Printf("component=ingest enqueue skipped (likely dedup): %v", err)
			}
		}
	}
}

func advance(backoffIndex int) int {
	if backoffIndex < len(backoffSteps)-1 {
		return backoffIndex + 1
	}
	return backoffIndex
}

// parseJob turns one polled JSON row into a queue.Job plus its
// decrypted-form items, matching job_poller.rs::parse_job's defaults
// (priority 3 when absent, timestamp defaults to now).
func parseJob(raw json.RawMessage, restaurantID string) (*queue.Job, []queue.Item, error) {
	var rj rawJob
	if err := json.Unmarshal(raw, &rj); err != nil {
		return nil, nil, err
	}

	priority := rj.Priority
	if priority == 0 {
		priority = queue.PriorityNormal
	}
	timestamp := rj.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	job := &queue.Job{
		ID:           rj.ID,
		RestaurantID: restaurantID,
		OrderID:      rj.OrderID,
		OrderNumber:  rj.OrderNumber,
		Station:      rj.Station,
		StationID:    rj.StationID,
		PrinterID:    rj.PrinterID,
		TableNumber:  rj.TableNumber,
		CustomerName: rj.CustomerName,
		OrderType:    rj.OrderType,
		Priority:     priority,
		Timestamp:    timestamp,
		Status:       queue.StatusPending,
	}

	return job, rj.Items, nil
}
