package retry

import (
	"context"
	"syscall"
	"testing"
	"time"

	perrors "polygon/internal/errors"
)

// BenchmarkBackoff_SendOK is the engine's common path: the first send
// goes through.
func BenchmarkBackoff_SendOK(b *testing.B) {
	bo := DefaultBackoff()
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		_ = bo.Do(ctx, func(int) error { return nil })
	}
}

// BenchmarkBackoff_NonRetryableSend measures the early exit for a send
// error the policy rejects.
func BenchmarkBackoff_NonRetryableSend(b *testing.B) {
	bo := DefaultBackoff()
	ctx := context.Background()
	se := perrors.WrapSend("10.0.0.1:5061", perrors.ErrDatagramTooLarge)
	for i := 0; i < b.N; i++ {
		_ = bo.Do(ctx, func(int) error { return Permanent(se) })
	}
}

func BenchmarkSchedule_Delays(b *testing.B) {
	s := MillisDelays(500, 1000, 2000, 4000)
	for i := 0; i < b.N; i++ {
		_, _ = s.Next(i & 3)
	}
}

func BenchmarkSchedule_BackoffJitter(b *testing.B) {
	s := (&Backoff{InitialDelay: 10 * time.Millisecond, MaxAttempts: 8, Jitter: true}).Schedule()
	for i := 0; i < b.N; i++ {
		_, _ = s.Next(i & 7)
	}
}

// BenchmarkCircuitBreaker_Exchange is one Allow/Record pair per
// exchange, alternating replies and timeouts.
func BenchmarkCircuitBreaker_Exchange(b *testing.B) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1 << 30})
	timeout := perrors.WrapSend("x", syscall.ENETUNREACH)
	for i := 0; i < b.N; i++ {
		if cb.Allow() != nil {
			b.Fatal("circuit opened")
		}
		if i&1 == 0 {
			cb.Record(nil)
		} else {
			cb.Record(timeout)
		}
	}
}

// BenchmarkCircuitBreaker_Open measures rejection while open.
func BenchmarkCircuitBreaker_Open(b *testing.B) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	cb.Record(perrors.ErrTimeout)
	for i := 0; i < b.N; i++ {
		_ = cb.Allow()
	}
}
