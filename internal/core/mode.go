// Package core is the orchestration layer.  It composes the transport,
// the exchange engine and capabilities into complete operational modes
// and provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  exchange / capability  →  session  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point from a
// (mode, codec) pair to a runnable Mode.
package core

import (
	"context"
	"io"
	"os"

	"polygon/internal/exchange"
	"polygon/internal/metrics"
	"polygon/internal/transport"
	"polygon/util"
)

// Mode represents a complete operational mode of polygon (send, recv,
// exchange, repeat, echo, sweep).  Each mode owns its full lifecycle
// from binding a socket to closing it.
type Mode interface {
	Run(ctx context.Context) error
}

// base carries what every mode needs: where to bind, where to log and
// where to print.
type base struct {
	Bind       []string
	BufferSize int
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// Stdout defaults to os.Stdout when nil.  Override in tests for
	// deterministic output.
	Stdout io.Writer
}

func (b *base) stdout() io.Writer {
	if b.Stdout != nil {
		return b.Stdout
	}
	return os.Stdout
}

// bind opens the mode's socket on the first usable bind address.
func (b *base) bind(ctx context.Context) (*transport.Handle, error) {
	h, err := transport.Bind(ctx, b.Bind...)
	if err != nil {
		return nil, err
	}
	h.SetLogger(b.Logger)
	h.SetMetrics(b.Metrics)
	b.Logger.Verbose("bound %s", h.LocalAddr())
	return h, nil
}

// options passes the mode's logger, metrics and buffer size on to the
// exchange layer.
func (b *base) options() []exchange.Option {
	opts := []exchange.Option{exchange.WithLogger(b.Logger), exchange.WithMetrics(b.Metrics)}
	if b.BufferSize > 0 {
		opts = append(opts, exchange.WithBufferSize(b.BufferSize))
	}
	return opts
}
