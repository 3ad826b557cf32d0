// Package breaker implements a per-printer circuit breaker: closed
// operation counts recent failures in a tracking window, trips open
// after a threshold, and probes recovery via a half-open trial after
// a timeout.
package breaker

import (
	"log"
	"sync"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes breaker thresholds. Zero-value fields fall back to
// DefaultConfig's values in New. OnOpen, if set, fires (from within
// Execute's caller goroutine) the moment a breaker trips open — wired
// to a best-effort operator notice (see internal/email).
type Config struct {
	FailureThreshold int
	Timeout          time.Duration
	TrackingWindow   time.Duration
	OnOpen           func(printerID string, failureCount int)
}

// DefaultConfig matches the original daemon's defaults: 5 failures,
// 5 minute open timeout, 10 minute tracking window.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Timeout:          5 * time.Minute,
		TrackingWindow:   10 * time.Minute,
	}
}

// Breaker guards calls to a single printer's transport.
type Breaker struct {
	printerID string
	cfg       Config

	mu                sync.Mutex
	state             State
	failureTimestamps []time.Time
	lastFailure       time.Time
	totalFailures     uint64
	openCount         uint64
	recoveryCount     uint64
}

// New returns a closed breaker for printerID. A zero Config uses
// DefaultConfig.
func New(printerID string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.TrackingWindow == 0 {
		cfg.TrackingWindow = def.TrackingWindow
	}
	return &Breaker{
		printerID: printerID,
		cfg:       cfg,
		state:     StateClosed,
	}
}

// Execute runs op under breaker protection. If the circuit is open and
// the timeout hasn't elapsed, op is never called and apperr.CircuitOpen
// is returned. A successful call while half-open closes the circuit
// and clears failure history; a failed call records a timestamp and
// may trip the circuit open.
func (b *Breaker) Execute(op func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if !b.lastFailure.IsZero() && time.Since(b.lastFailure) >= b.cfg.Timeout {
			log.Printf("component=breaker printer=%s transitioning to half_open", b.printerID)
			b.state = StateHalfOpen
		} else {
			b.mu.Unlock()
			return apperr.CircuitOpen
		}
	}
	b.mu.Unlock()

	err := op()

	b.mu.Lock()

	if err == nil {
		if b.state == StateHalfOpen {
			log.Printf("component=breaker printer=%s recovered, transitioning to closed", b.printerID)
			b.state = StateClosed
			b.failureTimestamps = nil
			b.recoveryCount++
		}
		b.mu.Unlock()
		return nil
	}

	now := time.Now()
	b.failureTimestamps = append(b.failureTimestamps, now)
	b.lastFailure = now
	b.totalFailures++

	kept := b.failureTimestamps[:0]
	for _, ts := range b.failureTimestamps {
		if now.Sub(ts) <= b.cfg.TrackingWindow {
			kept = append(kept, ts)
		}
	}
	b.failureTimestamps = kept

	trippedNow := false
	failureCount := len(b.failureTimestamps)
	if failureCount >= b.cfg.FailureThreshold && b.state != StateOpen {
		log.Printf("component=breaker printer=%s OPEN after %d failures", b.printerID, failureCount)
		b.state = StateOpen
		b.openCount++
		trippedNow = true
	}
	b.mu.Unlock()

	if trippedNow && b.cfg.OnOpen != nil {
		b.cfg.OnOpen(b.printerID, failureCount)
	}

	return err
}

// Status is a point-in-time snapshot for reporting.
type Status struct {
	PrinterID     string    `json:"printer_id"`
	State         State     `json:"state"`
	FailureCount  int       `json:"failure_count"`
	TotalFailures uint64    `json:"total_failures"`
	OpenCount     uint64    `json:"circuit_open_count"`
	RecoveryCount uint64    `json:"recovery_count"`
	LastFailure   time.Time `json:"-"`
}

func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		PrinterID:     b.printerID,
		State:         b.state,
		FailureCount:  len(b.failureTimestamps),
		TotalFailures: b.totalFailures,
		OpenCount:     b.openCount,
		RecoveryCount: b.recoveryCount,
		LastFailure:   b.lastFailure,
	}
}

// Reset manually forces the breaker back to closed (admin function).
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	log.Printf("component=breaker printer=%s manually reset", b.printerID)
	b.state = StateClosed
	b.failureTimestamps = nil
	b.lastFailure = time.Time{}
}
