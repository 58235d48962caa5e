// Package retry provides retransmission schedules, exponential backoff,
// and a circuit breaker for resilient datagram exchanges.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
// Return [Permanent](err) from the operation function to stop retrying
// immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  The backoff loop will return
// the inner error immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff implements exponential backoff with optional jitter.
type Backoff struct {
	// InitialDelay is the delay before the first retry (default 10ms).
	InitialDelay time.Duration
	// MaxDelay caps the backoff duration (default 1s).
	MaxDelay time.Duration
	// Multiplier increases the delay each attempt (default 2.0).
	Multiplier float64
	// MaxAttempts is the total number of tries including the first.
	// Set to 0 for unlimited retries (until context cancelled).
	MaxAttempts int
	// Jitter adds ±25% randomisation to prevent thundering herd.
	Jitter bool
}

// DefaultBackoff returns the schedule used for in-place resends of a
// datagram the transport rejected with a transient error.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  4,
		Jitter:       true,
	}
}

// delays returns the effective initial delay, multiplier, and cap.
func (b *Backoff) delays() (initial time.Duration, multiplier float64, max time.Duration) {
	initial, multiplier, max = b.InitialDelay, b.Multiplier, b.MaxDelay
	if initial <= 0 {
		initial = 10 * time.Millisecond
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}
	if max <= 0 {
		max = time.Second
	}
	return initial, multiplier, max
}

// nth returns the un-jittered wait before retry n (0-based).
func (b *Backoff) nth(n int) time.Duration {
	initial, multiplier, max := b.delays()
	d := float64(initial) * math.Pow(multiplier, float64(n))
	if d > float64(max) || math.IsInf(d, 0) {
		return max
	}
	return time.Duration(d)
}

// Do executes fn repeatedly until it succeeds, returns a permanent
// error, or the retry budget (attempts / context) is exhausted.
//
// The attempt parameter passed to fn is 1-based.  On success fn should
// return nil.  To abort retrying, wrap the error with [Permanent].
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		// Permanent errors are never retried.
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}

		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("max retries (%d) exceeded: %w", b.MaxAttempts, err)
		}

		wait := b.nth(attempt - 1)
		if b.Jitter {
			wait = addJitter(wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// Schedule exposes the backoff as a retransmission [Schedule] of
// MaxAttempts sends, the same total [Backoff.Do] makes.  Each send is
// followed by the next backoff delay.  MaxAttempts 0 never ends.
func (b *Backoff) Schedule() Schedule {
	return ScheduleFunc(func(i int) (time.Duration, bool) {
		if b.MaxAttempts > 0 && i >= b.MaxAttempts {
			return 0, false
		}
		d := b.nth(i)
		if b.Jitter {
			d = addJitter(d)
		}
		return d, true
	})
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}
