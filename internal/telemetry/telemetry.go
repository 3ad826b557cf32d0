// Package telemetry tracks job and printer outcomes in memory and
// exposes them as Prometheus text and JSON, without pulling in a
// metrics client library the rest of the retrieval pack never uses.
package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// perPrinter accumulates counters for one printer_id.
type perPrinter struct {
	jobsSucceeded   int64
	jobsFailed      int64
	totalDurationMS int64
}

// Metrics is a process-lifetime counter set, safe for concurrent use
// from the processor's worker goroutines and the httpapi handlers.
type Metrics struct {
	mu        sync.Mutex
	startedAt time.Time
	printers  map[string]*perPrinter
}

func New() *Metrics {
	return &Metrics{startedAt: time.Now(), printers: make(map[string]*perPrinter)}
}

func (m *Metrics) entry(printerID string) *perPrinter {
	p, ok := m.printers[printerID]
	if !ok {
		p = &perPrinter{}
		m.printers[printerID] = p
	}
	return p
}

func (m *Metrics) RecordJobSucceeded(printerID string, d time.Duration) {
	if printerID == "" {
		printerID = "unknown"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.entry(printerID)
	p.jobsSucceeded++
	p.totalDurationMS += d.Milliseconds()
}

func (m *Metrics) RecordJobFailed(printerID string) {
	if printerID == "" {
		printerID = "unknown"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(printerID).jobsFailed++
}

func (m *Metrics) UptimeSeconds() int64 {
	return int64(time.Since(m.startedAt).Seconds())
}

// PrinterStat is one printer's exported counters.
type PrinterStat struct {
	PrinterID          string  `json:"printer_id"`
	JobsSucceeded      int64   `json:"jobs_succeeded"`
	JobsFailed         int64   `json:"jobs_failed"`
	AvgPrintDurationMS float64 `json:"avg_print_duration_ms"`
}

// Snapshot is the /api/metrics/json payload.
type Snapshot struct {
	UptimeSeconds int64         `json:"uptime_secs"`
	Printers      []PrinterStat `json:"printers"`
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.printers))
	for id := range m.printers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stats := make([]PrinterStat, 0, len(ids))
	for _, id := range ids {
		p := m.printers[id]
		avg := 0.0
		if p.jobsSucceeded > 0 {
			avg = float64(p.totalDurationMS) / float64(p.jobsSucceeded)
		}
		stats = append(stats, PrinterStat{
			PrinterID:          id,
			JobsSucceeded:      p.jobsSucceeded,
			JobsFailed:         p.jobsFailed,
			AvgPrintDurationMS: avg,
		})
	}

	return Snapshot{UptimeSeconds: m.UptimeSeconds(), Printers: stats}
}

// PrometheusText renders the counters in the Prometheus text exposition
// format, built by hand with fmt/strings since no metrics client
// library appears anywhere in the retrieval pack.
func (m *Metrics) PrometheusText() string {
	snap := m.Snapshot()

	var b strings.Builder
	b.WriteString("# HELP printer_daemon_uptime_seconds Seconds since the daemon started.\n")
	b.WriteString("# TYPE printer_daemon_uptime_seconds gauge\n")
	fmt.Fprintf(&b, "printer_daemon_uptime_seconds %d\n", snap.UptimeSeconds)

	b.WriteString("# HELP printer_daemon_jobs_succeeded_total Successfully printed jobs, by printer.\n")
	b.WriteString("# TYPE printer_daemon_jobs_succeeded_total counter\n")
	for _, p := range snap.Printers {
		fmt.Fprintf(&b, "printer_daemon_jobs_succeeded_total{printer_id=%q} %d\n", p.PrinterID, p.JobsSucceeded)
	}

	b.WriteString("# HELP printer_daemon_jobs_failed_total Terminally failed jobs, by printer.\n")
	b.WriteString("# TYPE printer_daemon_jobs_failed_total counter\n")
	for _, p := range snap.Printers {
		fmt.Fprintf(&b, "printer_daemon_jobs_failed_total{printer_id=%q} %d\n", p.PrinterID, p.JobsFailed)
	}

	b.WriteString("# HELP printer_daemon_print_duration_ms_avg Average successful print duration, by printer.\n")
	b.WriteString("# TYPE printer_daemon_print_duration_ms_avg gauge\n")
	for _, p := range snap.Printers {
		fmt.Fprintf(&b, "printer_daemon_print_duration_ms_avg{printer_id=%q} %f\n", p.PrinterID, p.AvgPrintDurationMS)
	}

	return b.String()
}
