// Package apperr defines the daemon's error taxonomy as typed,
// wrappable error values, the Go analogue of the original daemon's
// thiserror-derived error enum.
package apperr

import "fmt"

// Kind classifies an error into one of the categories callers branch
// on (retry, surface to operator, open the breaker, ...).
type Kind string

const (
	KindConfig           Kind = "config"
	KindPrinterTransport Kind = "printer_transport"
	KindQueue            Kind = "queue"
	KindRemote           Kind = "remote"
	KindCircuitOpen      Kind = "circuit_open"
	KindRateLimited      Kind = "rate_limited"
)

// Error is a Kind-tagged error that wraps an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.CircuitOpen) match any *Error of the
// same Kind regardless of message/wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Config(format string, args ...any) *Error { return newf(KindConfig, format, args...) }
func ConfigWrap(err error, format string, args ...any) *Error {
	return wrap(KindConfig, err, format, args...)
}

func PrinterTransport(format string, args ...any) *Error {
	return newf(KindPrinterTransport, format, args...)
}
func PrinterTransportWrap(err error, format string, args ...any) *Error {
	return wrap(KindPrinterTransport, err, format, args...)
}

func Queue(format string, args ...any) *Error { return newf(KindQueue, format, args...) }
func QueueWrap(err error, format string, args ...any) *Error {
	return wrap(KindQueue, err, format, args...)
}

func Remote(format string, args ...any) *Error { return newf(KindRemote, format, args...) }
func RemoteWrap(err error, format string, args ...any) *Error {
	return wrap(KindRemote, err, format, args...)
}

func RateLimited(format string, args ...any) *Error { return newf(KindRateLimited, format, args...) }

// CircuitOpen is a sentinel value: compare with errors.Is(err, apperr.CircuitOpen).
var CircuitOpen = &Error{Kind: KindCircuitOpen, Msg: "circuit open"}

// ErrRateLimited is a sentinel value: compare with
// errors.Is(err, apperr.ErrRateLimited) regardless of the message, the
// way callers branch on CircuitOpen.
var ErrRateLimited = &Error{Kind: KindRateLimited, Msg: "rate limited"}
