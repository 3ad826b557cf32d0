package ingest

import (
	"context"
	"log"
)

// Reporter adapts Client to the processor's Reporter interface: every
// push is best-effort and swallows its own error (beyond logging),
// since local state is always the source of truth for a job's fate.
type Reporter struct {
	client *Client
}

func NewReporter(client *Client) *Reporter {
	return &Reporter{client: client}
}

func (r *Reporter) PushStatus(ctx context.Context, jobID, status string) {
	if err := r.client.UpdateJobStatus(ctx, jobID, status, "", nil); err != nil {
		log.Printf("component=ingest best-effort status push failed job=%s status=%s: %v", jobID, status, err)
	}
}

func (r *Reporter) PushJobLog(ctx context.Context, jobID, event, detail string) {
	if err := r.client.InsertJobLog(ctx, jobID, event, detail); err != nil {
		log.Printf("component=ingest best-effort job log push failed job=%s event=%s: %v", jobID, event, err)
	}
}
