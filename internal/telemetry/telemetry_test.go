package telemetry

import (
	"strings"
	"testing"
	"time"
)

func TestRecordJobSucceededAccumulatesAverageDuration(t *testing.T) {
	m := New()
	m.RecordJobSucceeded("star-1", 100*time.Millisecond)
	m.RecordJobSucceeded("star-1", 300*time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Printers) != 1 {
		t.Fatalf("expected 1 printer, got %d", len(snap.Printers))
	}
	p := snap.Printers[0]
	if p.PrinterID != "star-1" || p.JobsSucceeded != 2 {
		t.Fatalf("unexpected stat: %+v", p)
	}
	if p.AvgPrintDurationMS != 200 {
		t.Fatalf("AvgPrintDurationMS = %v, want 200", p.AvgPrintDurationMS)
	}
}

func TestRecordJobFailedDefaultsEmptyPrinterIDToUnknown(t *testing.T) {
	m := New()
	m.RecordJobFailed("")
	snap := m.Snapshot()
	if len(snap.Printers) != 1 || snap.Printers[0].PrinterID != "unknown" {
		t.Fatalf("expected a single 'unknown' printer entry, got %+v", snap.Printers)
	}
	if snap.Printers[0].JobsFailed != 1 {
		t.Fatalf("JobsFailed = %d, want 1", snap.Printers[0].JobsFailed)
	}
}

func TestSnapshotOrdersPrintersByID(t *testing.T) {
	m := New()
	m.RecordJobFailed("zebra")
	m.RecordJobFailed("alpha")
	m.RecordJobFailed("mike")

	snap := m.Snapshot()
	var ids []string
	for _, p := range snap.Printers {
		ids = append(ids, p.PrinterID)
	}
	want := []string{"alpha", "mike", "zebra"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Snapshot order = %v, want %v", ids, want)
		}
	}
}

func TestPrometheusTextIncludesAllCounterFamilies(t *testing.T) {
	m := New()
	m.RecordJobSucceeded("star-1", 50*time.Millisecond)
	m.RecordJobFailed("star-1")

	text := m.PrometheusText()
	for _, want := range []string{
		"printer_daemon_uptime_seconds",
		"printer_daemon_jobs_succeeded_total{printer_id=\"star-1\"} 1",
		"printer_daemon_jobs_failed_total{printer_id=\"star-1\"} 1",
		"printer_daemon_print_duration_ms_avg{printer_id=\"star-1\"}",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("PrometheusText missing %q:\n%s", want, text)
		}
	}
}
