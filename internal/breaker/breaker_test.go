package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	cfg := Config{FailureThreshold: 3, Timeout: 100 * time.Millisecond, TrackingWindow: 10 * time.Minute}
	b := New("test_printer", cfg)

	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return errors.New("test failure") })
		if err == nil {
			t.Fatalf("expected failure %d to return an error", i)
		}
	}

	status := b.Status()
	if status.State != StateOpen {
		t.Fatalf("state = %s, want %s", status.State, StateOpen)
	}

	err := b.Execute(func() error { return nil })
	if err == nil {
		t.Fatal("expected open circuit to reject request immediately")
	}
	if !errors.Is(err, apperr.CircuitOpen) {
		t.Fatalf("expected CircuitOpen, got %v", err)
	}
}

func TestBreakerRecovery(t *testing.T) {
	cfg := Config{FailureThreshold: 2, Timeout: 50 * time.Millisecond, TrackingWindow: 10 * time.Minute}
	b := New("test_printer", cfg)

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errors.New("test failure") })
	}

	time.Sleep(60 * time.Millisecond)

	err := b.Execute(func() error { return nil })
	if err != nil {
		t.Fatalf("expected half-open trial to succeed, got %v", err)
	}

	status := b.Status()
	if status.State != StateClosed {
		t.Fatalf("state = %s, want %s", status.State, StateClosed)
	}
}
