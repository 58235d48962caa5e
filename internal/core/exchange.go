package core

import (
	"context"
	"fmt"
	"time"

	"polygon/internal/exchange"
	"polygon/internal/retry"
)

// ExchangeMode runs timed exchanges against the destination and prints
// each reply.  With Count > 1 the exchanges repeat Interval apart
// through one socket; a circuit breaker ends the run once the peer has
// stopped answering.
type ExchangeMode[T any] struct {
	base
	Config   exchange.Config
	Kind     Kind[T]
	Value    T
	Count    int
	Interval time.Duration
	Breaker  *retry.CircuitBreakerConfig
}

// Run performs the exchanges.  A single failed exchange is returned as
// is; for a run of several, the error summarizes the failures.
func (m *ExchangeMode[T]) Run(ctx context.Context) error {
	h, err := m.bind(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	e := exchange.New(h, m.Kind.Codec, m.Config, m.options()...)

	cb := retry.NewCircuitBreaker(m.breakerConfig())
	runs := m.Count
	if runs < 1 {
		runs = 1
	}

	var (
		failed  int
		lastErr error
	)
	for i := 0; i < runs; i++ {
		if i > 0 && !sleep(ctx, m.Interval) {
			return nil
		}
		if err := cb.Allow(); err != nil {
			return fmt.Errorf("stopped after %d exchange(s): %w", i, err)
		}

		res, err := e.Exchange(ctx, m.Value)
		switch exchange.OutcomeOf(err) {
		case exchange.OK:
			cb.Record(nil)
			fmt.Fprintf(m.stdout(), "%s\t%s\n", res.From, m.Kind.Format(res.Payload))
			m.Logger.Verbose("exchange %s: %d attempt(s), %v", res.ID, res.Attempts, res.Elapsed.Round(time.Microsecond))
		case exchange.Cancelled:
			return nil
		default:
			cb.Record(err)
			failed++
			lastErr = err
			m.Logger.Warn("exchange with %s: %s: %v", m.Config.Target(), exchange.OutcomeOf(err), err)
			m.Logger.Debug("circuit %s, %d consecutive failure(s)", cb.CurrentState(), cb.Failures())
		}
	}

	switch {
	case failed == 0:
		return nil
	case runs == 1:
		return lastErr
	default:
		return fmt.Errorf("%d of %d exchanges failed, last: %w", failed, runs, lastErr)
	}
}

// breakerConfig copies Breaker, logging transitions unless the caller
// already watches them.
func (m *ExchangeMode[T]) breakerConfig() *retry.CircuitBreakerConfig {
	var c retry.CircuitBreakerConfig
	if m.Breaker != nil {
		c = *m.Breaker
	}
	if c.OnStateChange == nil {
		c.OnStateChange = func(from, to retry.State) {
			m.Logger.Verbose("circuit to %s: %s -> %s", m.Config.Target(), from, to)
		}
	}
	return &c
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
