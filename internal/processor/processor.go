// Package processor runs the background worker pool that drains the
// durable queue: poll, render, print under breaker protection, and
// branch into retry or terminal reporting.
package processor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
	"github.com/eatsome/printer-daemon/internal/breaker"
	"github.com/eatsome/printer-daemon/internal/config"
	"github.com/eatsome/printer-daemon/internal/escpos"
	"github.com/eatsome/printer-daemon/internal/printer/driver"
	"github.com/eatsome/printer-daemon/internal/queue"
	"golang.org/x/sync/semaphore"
)

const (
	pollInterval   = 2 * time.Second
	pollBatchSize  = 5
	defaultWorkers = 5
	jobTimeout     = 120 * time.Second

	shutdownPollInterval = 500 * time.Millisecond
	shutdownMaxWait      = 10 * time.Second
)

// Reporter pushes best-effort status/log updates to the remote edge.
// A nil Reporter (unpaired daemon, or one built with a no-op
// implementation) silently skips every push; local state stays the
// source of truth for the job's fate either way.
type Reporter interface {
	PushStatus(ctx context.Context, jobID, status string)
	PushJobLog(ctx context.Context, jobID, event, detail string)
}

// Telemetry records job outcomes for the local metrics endpoints.
type Telemetry interface {
	RecordJobSucceeded(printerID string, duration time.Duration)
	RecordJobFailed(printerID string)
}

// PrinterResolver looks up a printer's current configuration (address,
// transport, capabilities) from the latest pairing document.
type PrinterResolver interface {
	Printer(id string) (config.PrinterConfig, bool)
}

// Processor drains the durable queue with a bounded worker pool.
type Processor struct {
	queue     *queue.Queue
	breakers  *breaker.Registry
	drivers   *driver.Registry
	printers  PrinterResolver
	reporter  Reporter
	telemetry Telemetry

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func New(q *queue.Queue, breakers *breaker.Registry, drivers *driver.Registry, printers PrinterResolver, reporter Reporter, telemetry Telemetry, workers int) *Processor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Processor{
		queue:     q,
		breakers:  breakers,
		drivers:   drivers,
		printers:  printers,
		reporter:  reporter,
		telemetry: telemetry,
		sem:       semaphore.NewWeighted(int64(workers)),
	}
}

// Run polls every 2 seconds until ctx is cancelled. A full batch means
// there may be more work queued, so the loop proceeds immediately
// without sleeping; an idle (partial or empty) batch waits out the
// rest of the interval. On cancellation, Run stops dispatching new
// jobs and drains in-flight workers before returning.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return
		default:
		}

		n := p.pollOnce(ctx)

		if n >= pollBatchSize {
			continue
		}

		select {
		case <-ctx.Done():
			p.shutdown()
			return
		case <-time.After(pollInterval):
		}
	}
}

func (p *Processor) pollOnce(ctx context.Context) int {
	jobs, err := p.queue.GetPendingJobs(pollBatchSize)
	if err != nil {
		log.Printf("component=processor poll error: %v", err)
		return 0
	}

	for _, j := range jobs {
		job := j
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return len(jobs) // ctx cancelled while waiting for a free slot
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.sem.Release(1)
			p.runJob(ctx, job)
		}()
	}

	return len(jobs)
}

// shutdown waits (up to 10s, polling every 500ms) for in-flight jobs to
// finish printing, then flushes the database to disk.
func (p *Processor) shutdown() {
	log.Println("component=processor shutting down: draining in-flight jobs")

	deadline := time.Now().Add(shutdownMaxWait)
	for time.Now().Before(deadline) {
		n, err := p.queue.GetProcessingCount()
		if err != nil || n == 0 {
			break
		}
		time.Sleep(shutdownPollInterval)
	}

	p.wg.Wait()

	if err := p.queue.FlushDB(); err != nil {
		log.Printf("component=processor flush on shutdown failed: %v", err)
	}
}

// runJob executes the six ordered steps of one job's lifecycle.
func (p *Processor) runJob(ctx context.Context, job *queue.Job) {
	if err := p.queue.MarkPrinting(job.ID); err != nil {
		log.Printf("component=processor job=%s mark_printing failed: %v", job.ID, err)
		return
	}
	p.pushStatusAsync(job.ID, queue.StatusPrinting)

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	printerID, printErr := p.attemptPrint(jobCtx, job)
	duration := time.Since(start)

	if printErr == nil {
		p.onSuccess(job, printerID, duration)
		return
	}

	if jobCtx.Err() == context.DeadlineExceeded {
		printErr = apperr.PrinterTransportWrap(printErr, "total job timeout exceeded")
	}
	p.onFailure(job, printErr)
}

// attemptPrint resolves the target printer, renders the ticket, and
// calls the driver under breaker protection. It returns the printer ID
// that actually handled the job, so a future failover path can report
// which physical printer fired.
func (p *Processor) attemptPrint(ctx context.Context, job *queue.Job) (string, error) {
	if job.PrinterID == nil {
		return "", apperr.PrinterTransport("job %s has no assigned printer", job.ID)
	}
	printerID := *job.PrinterID

	pc, ok := p.printers.Printer(printerID)
	if !ok {
		return printerID, apperr.PrinterTransport("printer %s not found in current configuration", printerID)
	}

	drv, ok := p.drivers.Get(string(pc.ConnectionType))
	if !ok {
		return printerID, apperr.PrinterTransport("no driver registered for connection type %q", pc.ConnectionType)
	}

	data, err := p.render(job, pc)
	if err != nil {
		return printerID, apperr.PrinterTransportWrap(err, "render job %s", job.ID)
	}

	b := p.breakers.Get(printerID)
	err = b.Execute(func() error {
		return drv.Print(ctx, pc.Address, data)
	})
	return printerID, err
}

func (p *Processor) render(job *queue.Job, pc config.PrinterConfig) ([]byte, error) {
	items, err := p.queue.DecryptItems(job)
	if err != nil {
		return nil, err
	}

	order := escpos.Order{
		Station:     job.Station,
		OrderNumber: job.OrderNumber,
		Priority:    job.Priority,
		TimestampMS: job.Timestamp,
		Items:       make([]escpos.Item, len(items)),
	}
	if job.OrderType != nil {
		order.OrderType = *job.OrderType
	}
	if job.TableNumber != nil {
		order.TableNumber = *job.TableNumber
	}
	if job.CustomerName != nil {
		order.CustomerName = *job.CustomerName
	}
	for i, it := range items {
		order.Items[i] = escpos.Item{
			Quantity:  it.Quantity,
			Name:      it.Name,
			Modifiers: it.Modifiers,
			Notes:     it.Notes,
		}
	}

	paperWidth := escpos.Width58mm
	if pc.Capabilities.MaxWidth >= int(escpos.Width80mm) {
		paperWidth = escpos.Width80mm
	}

	return escpos.FormatKitchenReceipt(order, paperWidth), nil
}

func (p *Processor) onSuccess(job *queue.Job, printerID string, duration time.Duration) {
	if err := p.queue.MarkCompleted(job.ID); err != nil {
		log.Printf("component=processor job=%s mark_completed failed: %v", job.ID, err)
	}
	detail := fmt.Sprintf("printed via %s in %dms", printerID, duration.Milliseconds())
	p.pushStatusAsync(job.ID, queue.StatusDone)
	p.pushJobLogAsync(job.ID, "completed", detail)
	if err := p.queue.InsertJobLog(job.ID, "completed", detail); err != nil {
		log.Printf("component=processor job=%s local job log insert failed: %v", job.ID, err)
	}
	if p.telemetry != nil {
		p.telemetry.RecordJobSucceeded(printerID, duration)
	}
}

// onFailure either requeues the job for a backed-off retry or marks it
// terminally failed, never both: MarkFailed and RetryJob each bump
// retry_count on their own, so calling both for the same failure would
// double-count it and leave the row transiently in status=failed right
// before a retry overwrote it back to pending.
func (p *Processor) onFailure(job *queue.Job, printErr error) {
	retryCount := job.RetryCount + 1
	if retryCount < 3 {
		if err := p.queue.RetryJob(job.ID); err != nil {
			log.Printf("component=processor job=%s retry_job failed: %v", job.ID, err)
		}
		p.pushStatusAsync(job.ID, queue.StatusPending)
		return
	}

	if err := p.queue.MarkFailed(job.ID, printErr.Error()); err != nil {
		log.Printf("component=processor job=%s mark_failed failed: %v", job.ID, err)
	}
	detail := printErr.Error()
	p.pushStatusAsync(job.ID, queue.StatusFailed)
	p.pushJobLogAsync(job.ID, "failed", detail)
	if err := p.queue.InsertJobLog(job.ID, "failed", detail); err != nil {
		log.Printf("component=processor job=%s local job log insert failed: %v", job.ID, err)
	}
	if p.telemetry != nil {
		printerID := ""
		if job.PrinterID != nil {
			printerID = *job.PrinterID
		}
		p.telemetry.RecordJobFailed(printerID)
	}
}

// pushStatusAsync and pushJobLogAsync never block the job's local
// progress on the remote edge's response.
func (p *Processor) pushStatusAsync(jobID, status string) {
	if p.reporter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.reporter.PushStatus(ctx, jobID, status)
	}()
}

func (p *Processor) pushJobLogAsync(jobID, event, detail string) {
	if p.reporter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.reporter.PushJobLog(ctx, jobID, event, detail)
	}()
}
