package core

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"polygon/internal/exchange"
)

// SweepResult records how the exchange with one target ended.
type SweepResult[T any] struct {
	Target  string
	Outcome exchange.Outcome
	Result  *exchange.Result[T]
	Err     error
}

// SweepMode runs one exchange per target concurrently.  Every exchange
// gets a socket of its own, bound to an ephemeral port on the first
// bind address's IP, so no two exchanges ever share a handle.
type SweepMode[T any] struct {
	base
	Config  exchange.Config // timeout, attempts and filtering; the target is replaced
	Kind    Kind[T]
	Value   T
	Targets []string
	Workers int
}

// Run sweeps all targets and prints one line per target in input order.
// It fails only when no target answered.
func (m *SweepMode[T]) Run(ctx context.Context) error {
	if len(m.Targets) == 0 {
		return fmt.Errorf("no targets specified for sweep")
	}

	m.Logger.Verbose("sweeping %d target(s)", len(m.Targets))
	results := m.Sweep(ctx)

	answered := 0
	for _, r := range results {
		if r.Outcome == exchange.OK {
			answered++
			fmt.Fprintf(m.stdout(), "%s\t%s\t%d attempt(s)\t%s\n",
				r.Target, r.Outcome, r.Result.Attempts, m.Kind.Format(r.Result.Payload))
			continue
		}
		fmt.Fprintf(m.stdout(), "%s\t%s\n", r.Target, r.Outcome)
		m.Logger.Verbose("%s: %v", r.Target, r.Err)
	}

	if answered == 0 && ctx.Err() == nil {
		return fmt.Errorf("no reply from any of %d target(s)", len(m.Targets))
	}
	return nil
}

// Sweep exchanges with every target and returns results in the same
// order as Targets.
func (m *SweepMode[T]) Sweep(ctx context.Context) []SweepResult[T] {
	results := make([]SweepResult[T], len(m.Targets))

	g, ctx := errgroup.WithContext(ctx)
	if m.Workers > 0 {
		g.SetLimit(m.Workers)
	}
	for i, target := range m.Targets {
		g.Go(func() error {
			results[i] = m.one(ctx, target)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *SweepMode[T]) one(ctx context.Context, target string) SweepResult[T] {
	r := SweepResult[T]{Target: target}

	cfg, err := m.Config.WithTarget(target)
	if err != nil {
		r.Err, r.Outcome = err, exchange.Failed
		return r
	}

	b := m.base
	b.Bind = ephemeral(m.Bind)
	h, err := b.bind(ctx)
	if err != nil {
		r.Err, r.Outcome = err, exchange.Failed
		return r
	}
	defer h.Close()

	start := time.Now()
	r.Result, r.Err = exchange.New(h, m.Kind.Codec, cfg, m.options()...).Exchange(ctx, m.Value)
	r.Outcome = exchange.OutcomeOf(r.Err)
	m.Logger.Debug("%s: %s after %v", target, r.Outcome, time.Since(start).Round(time.Millisecond))
	return r
}

// ephemeral keeps the IPs of addrs with the port set to 0.
func ephemeral(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		host, _, err := net.SplitHostPort(a)
		if err != nil {
			continue
		}
		out = append(out, net.JoinHostPort(host, "0"))
	}
	if len(out) == 0 {
		out = append(out, "0.0.0.0:0")
	}
	return out
}
