package apperr

import (
	"errors"
	"testing"
)

func TestErrorsIsMatchesSameKindRegardlessOfMessage(t *testing.T) {
	err := PrinterTransport("printer %s offline", "p1")
	if !errors.Is(err, &Error{Kind: KindPrinterTransport}) {
		t.Fatal("expected errors.Is to match on Kind alone")
	}
	if errors.Is(err, &Error{Kind: KindQueue}) {
		t.Fatal("expected errors.Is to reject a different Kind")
	}
}

func TestCircuitOpenSentinelMatchesAnyCircuitOpenError(t *testing.T) {
	wrapped := wrap(KindCircuitOpen, nil, "printer %s", "p1")
	if !errors.Is(wrapped, CircuitOpen) {
		t.Fatal("expected errors.Is(wrapped, CircuitOpen) to match by Kind")
	}
}

func TestWrapPreservesUnderlyingErrForUnwrap(t *testing.T) {
	underlying := errors.New("dial tcp: timeout")
	err := QueueWrap(underlying, "enqueue job %s", "j1")
	if !errors.Is(err, underlying) {
		t.Fatal("expected errors.Is to find the wrapped underlying error")
	}
	if err.Kind != KindQueue {
		t.Errorf("Kind = %v, want %v", err.Kind, KindQueue)
	}
}
