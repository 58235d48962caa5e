// Package errors provides domain-specific error types for polygon.
//
// These types carry structured context (codec, address, attempt count,
// retryability) that helps callers tell the terminal outcomes of an
// exchange apart and gives better diagnostics than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrRetryExhausted   = errors.New("retry budget exhausted")
	ErrTimeout          = errors.New("operation timed out")
	ErrCancelled        = errors.New("exchange cancelled")
	ErrNoDestination    = errors.New("no destination address configured")
	ErrDatagramTooLarge = errors.New("datagram exceeds maximum UDP payload")
	ErrClosed           = errors.New("transport is closed")
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrTruncated        = errors.New("datagram longer than the receive buffer")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "read", "close", "stream"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BindError reports that no local address could be bound.  It is only
// ever produced while constructing a transport handle.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// SendError reports that the transport rejected a write.
type SendError struct {
	Addr      string
	Err       error
	Retryable bool
}

func (e *SendError) Error() string {
	s := fmt.Sprintf("send %s: %v", e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *SendError) Unwrap() error { return e.Err }

// EncodeError reports a payload the codec cannot represent.
type EncodeError struct {
	Codec string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s encode: %v", e.Codec, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports bytes that are malformed or do not match the
// expected shape.
type DecodeError struct {
	Codec string
	Len   int // length of the offending buffer
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode (%d bytes): %v", e.Codec, e.Len, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExhaustedError is the terminal outcome of an exchange whose every
// attempt timed out without a valid, matching reply.  Last holds the
// most recent decode failure observed, if any.
type ExhaustedError struct {
	Attempts int
	Timeout  time.Duration
	Last     error
}

func (e *ExhaustedError) Error() string {
	s := fmt.Sprintf("no reply after %d attempt(s) of %v", e.Attempts, e.Timeout)
	if e.Last != nil {
		s += fmt.Sprintf(" (last discarded reply: %v)", e.Last)
	}
	return s
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is matches both [ErrRetryExhausted] and [ErrTimeout].
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted || target == ErrTimeout
}

// CancelledError is the terminal outcome of an exchange aborted by its
// caller.  It matches [ErrCancelled] and unwraps to the context cause.
type CancelledError struct {
	Attempts int
	Cause    error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("exchange cancelled after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// Is matches [ErrCancelled].
func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSend creates a SendError, classifying retryability the same way
// as [Wrap].
func WrapSend(addr string, err error) *SendError {
	return &SendError{Addr: addr, Err: err, Retryable: classifyRetryable(err)}
}

// WrapBind creates a BindError.
func WrapBind(addr string, err error) *BindError {
	return &BindError{Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.  It has the shape
// of a send-retry policy and can be passed to the exchange engine as one.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Retryable
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTemporary reports whether err represents a temporary condition.
func IsTemporary(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable // temporary ≈ retryable for network errors
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Transient routing conditions on a flaky interface.
	for _, errno := range []syscall.Errno{
		syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.ENOBUFS, syscall.ECONNREFUSED,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	// net.OpError with Temporary() hint
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use polygon/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
