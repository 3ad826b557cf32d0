// Package ingest pulls pending print jobs from the restaurant's
// Supabase edge function on an adaptive backoff schedule and reports
// terminal job status back upstream, best-effort.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
)

// Client calls the printer-daemon-api edge function, grounded on the
// original daemon's SupabaseClient: an apikey header for the Supabase
// gateway plus a per-restaurant X-Printer-Token for the edge function
// itself. A 401 from either is surfaced as a Config error — the core
// never attempts to auto-renew an expired token.
type Client struct {
	http         *http.Client
	baseURL      string
	anonKey      string
	printerToken string
}

func NewClient(baseURL, anonKey, printerToken string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		anonKey:      anonKey,
		printerToken: printerToken,
	}
}

// edgeCall posts {action, payload} to the single printer-daemon-api
// function and decodes the JSON response.
func (c *Client) edgeCall(ctx context.Context, action string, payload any, out any) error {
	if c.printerToken == "" {
		return apperr.Config("no auth token configured; pair this daemon from the POS devices page")
	}

	body, err := json.Marshal(map[string]any{"action": action, "payload": payload})
	if err != nil {
		return apperr.RemoteWrap(err, "marshal edge request %s", action)
	}

	url := c.baseURL + "/functions/v1/printer-daemon-api"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.RemoteWrap(err, "build edge request %s", action)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("X-Printer-Token", c.printerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.RemoteWrap(err, "call edge function %s", action)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperr.Config("auth token expired or invalid; re-pair this daemon from the POS devices page")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return apperr.Remote("edge function %s failed: %d %s", action, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.RemoteWrap(err, "decode edge response %s", action)
	}
	return nil
}

// PollResponse is the poll-jobs edge function's reply: an ordered list
// of raw job rows plus, when requested, a primary->backups failover map.
type PollResponse struct {
	Jobs           []json.RawMessage   `json:"jobs"`
	FailoverConfig map[string][]string `json:"failover_config,omitempty"`
}

// PollJobs sends the poll-jobs action, including the configured printer
// IDs (which the edge records as a heartbeat: last_seen=now,
// status=online) and, when includeFailover is set, a flag requesting
// the failover-config map.
func (c *Client) PollJobs(ctx context.Context, printerIDs []string, includeFailover bool) (PollResponse, error) {
	payload := map[string]any{"printer_ids": printerIDs}
	if includeFailover {
		payload["include_failover_config"] = true
	}

	var out PollResponse
	if err := c.edgeCall(ctx, "poll-jobs", payload, &out); err != nil {
		return PollResponse{}, err
	}
	return out, nil
}

// UpdateJobStatus pushes a terminal or intermediate job status. Errors
// are always best-effort from the caller's point of view — local state
// remains the source of truth for the job's fate regardless.
func (c *Client) UpdateJobStatus(ctx context.Context, jobID, status string, errMsg string, durationMS *int64) error {
	payload := map[string]any{"job_id": jobID, "status": status}
	if errMsg != "" {
		payload["error_message"] = errMsg
	}
	if durationMS != nil {
		payload["print_duration_ms"] = *durationMS
	}
	return c.edgeCall(ctx, "update-job-status", payload, nil)
}

// InsertJobLog appends a row to the remote print_jobs_log table.
func (c *Client) InsertJobLog(ctx context.Context, jobID, status, detail string) error {
	payload := map[string]any{
		"job_id": jobID,
		"status": status,
	}
	if detail != "" {
		payload["error_message"] = detail
	}
	return c.edgeCall(ctx, "insert-job-log", payload, nil)
}

// UpdatePrinterStatus reports a circuit-breaker-driven printer status
// change upstream (online/degraded/offline), best-effort.
func (c *Client) UpdatePrinterStatus(ctx context.Context, printerID, status string) error {
	return c.edgeCall(ctx, "update-printer-status", map[string]any{
		"printer_id": printerID,
		"status":     status,
	}, nil)
}

