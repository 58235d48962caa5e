// Package exchange implements the timed send/receive exchange: encode
// a payload, send it to a target, wait a bounded window for a matching
// reply, and retransmit up to a fixed number of attempts.
package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"

	"polygon/internal/codec"
	perrors "polygon/internal/errors"
	"polygon/internal/metrics"
	"polygon/internal/retry"
	"polygon/internal/transport"
	"polygon/util"
)

// State is a step of the exchange state machine.
type State int

const (
	StateIdle State = iota
	StateEncoding
	StateSending
	StateAwaitingReply
	StateDecoding
	StateTimedOut
	StateRetryExhausted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEncoding:
		return "encoding"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateDecoding:
		return "decoding"
	case StateTimedOut:
		return "timed-out"
	case StateRetryExhausted:
		return "retry-exhausted"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ── options ──────────────────────────────────────────────────────────

type options struct {
	clock       Clock
	logger      *util.Logger
	metrics     *metrics.Collector
	bufSize     int
	sendBackoff *retry.Backoff
}

// Option configures an Engine.
type Option func(*options)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger attaches a logger.  State transitions are logged at debug
// level, retries at verbose.
func WithLogger(l *util.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithBufferSize sets the receive capacity.  Replies longer than n
// bytes are discarded as truncated.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufSize = n }
}

// WithSendBackoff sets the backoff used for retryable send errors.
func WithSendBackoff(b *retry.Backoff) Option {
	return func(o *options) { o.sendBackoff = b }
}

// ── engine ───────────────────────────────────────────────────────────

// Engine runs exchanges of T over one PacketConn.  An Engine may run
// exchanges back to back but not concurrently: replies are matched by
// source address only, so two exchanges in flight on one socket would
// steal each other's replies.
type Engine[T any] struct {
	conn  transport.PacketConn
	codec codec.Codec[T]
	cfg   Config
	opts  options
}

// New builds an Engine.  cfg must come from [NewConfig].
func New[T any](conn transport.PacketConn, c codec.Codec[T], cfg Config, opts ...Option) *Engine[T] {
	return &Engine[T]{conn: conn, codec: c, cfg: cfg, opts: newOptions(opts)}
}

func newOptions(opts []Option) options {
	o := options{
		clock:   SystemClock{},
		bufSize: transport.MaxDatagramSize,
		sendBackoff: &retry.Backoff{
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     100 * time.Millisecond,
			Multiplier:   2,
			MaxAttempts:  4,
			Jitter:       true,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Config returns the engine's exchange configuration.
func (e *Engine[T]) Config() Config { return e.cfg }

// Send encodes payload and sends it once to the target without waiting
// for a reply.
func (e *Engine[T]) Send(ctx context.Context, payload T) error {
	data, err := e.codec.Encode(payload)
	if err != nil {
		e.opts.metrics.RecordError(err.Error())
		return err
	}
	if err := e.send(ctx, data); err != nil {
		e.opts.metrics.RecordError(err.Error())
		return err
	}
	return nil
}

// Exchange sends payload to the target and returns the first reply that
// decodes (and, with source filtering, comes from the target).  Each
// attempt waits cfg.Timeout after its send; after MaxAttempts silent
// windows the error matches [perrors.ErrRetryExhausted].  Cancelling
// ctx ends the exchange with an error matching [perrors.ErrCancelled]
// and the context's cause.
func (e *Engine[T]) Exchange(ctx context.Context, payload T) (*Result[T], error) {
	x := &run[T]{
		Engine: e,
		id:     uuid.New(),
		start:  e.opts.clock.Now(),
		state:  StateIdle,
	}
	e.opts.metrics.ExchangeStarted()
	res, err := x.loop(ctx, payload)
	e.opts.metrics.ExchangeFinished(err == nil)
	if err != nil {
		e.opts.metrics.RecordError(err.Error())
		e.opts.logger.Verbose("exchange %s to %s: %v", x.id, e.cfg.target, err)
	}
	return res, err
}

// send transmits data once, retrying in place while the configured
// policy calls the failure retryable.
func (e *Engine[T]) send(ctx context.Context, data []byte) error {
	if e.cfg.sendRetry == nil {
		return e.conn.SendTo(ctx, data, e.cfg.target)
	}
	return e.opts.sendBackoff.Do(ctx, func(attempt int) error {
		err := e.conn.SendTo(ctx, data, e.cfg.target)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !e.cfg.retryable(err) {
			return retry.Permanent(err)
		}
		e.opts.logger.Verbose("send to %s failed (try %d): %v", e.cfg.target, attempt+1, err)
		return err
	})
}

// run is the state of one exchange.
type run[T any] struct {
	*Engine[T]

	id       uuid.UUID
	start    time.Time
	state    State
	attempts int
	data     []byte
	timer    Timer
	reply    transport.Datagram
	lastBad  error // most recent undecodable reply
	result   *Result[T]
	err      error
}

func (x *run[T]) to(s State) {
	x.opts.logger.Debug("exchange %s: %s -> %s", x.id, x.state, s)
	x.state = s
}

func (x *run[T]) finish(res *Result[T], err error) {
	if x.timer != nil {
		x.timer.Stop()
	}
	x.result, x.err = res, err
	x.to(StateDone)
}

func (x *run[T]) loop(ctx context.Context, payload T) (*Result[T], error) {
	x.to(StateEncoding)
	for x.state != StateDone {
		switch x.state {
		case StateEncoding:
			data, err := x.codec.Encode(payload)
			if err != nil {
				x.finish(nil, err)
				continue
			}
			x.data = data
			x.to(StateSending)

		case StateSending:
			if err := ctx.Err(); err != nil {
				x.finish(nil, x.cancelled(ctx))
				continue
			}
			x.opts.metrics.AttemptStarted(x.attempts > 0)
			if err := x.send(ctx, x.data); err != nil {
				if ctx.Err() != nil {
					x.finish(nil, x.cancelled(ctx))
				} else {
					x.finish(nil, err)
				}
				continue
			}
			x.attempts++
			x.timer = x.opts.clock.NewTimer(x.cfg.timeout)
			x.to(StateAwaitingReply)

		case StateAwaitingReply:
			dg, err := x.await(ctx)
			switch {
			case err == errWindowClosed:
				x.to(StateTimedOut)
			case ctx.Err() != nil:
				x.finish(nil, x.cancelled(ctx))
			case err != nil:
				x.finish(nil, err)
			default:
				x.reply = dg
				x.to(StateDecoding)
			}

		case StateDecoding:
			if x.cfg.filterSource && !util.SameEndpoint(x.reply.Addr, x.cfg.target) {
				x.discard("from %s, not the target", x.reply.Addr)
				continue
			}
			if x.reply.Truncated {
				x.lastBad = truncated(x.codec.Name(), x.reply)
				x.discard("from %s: %v", x.reply.Addr, x.lastBad)
				continue
			}
			v, err := x.codec.Decode(x.reply.Data)
			if err != nil {
				x.lastBad = err
				x.discard("from %s: %v", x.reply.Addr, err)
				continue
			}
			elapsed := x.opts.clock.Now().Sub(x.start)
			x.finish(assemble(x.id, v, x.reply.Addr, x.attempts, elapsed), nil)

		case StateTimedOut:
			if x.attempts < x.cfg.maxAttempts {
				x.opts.logger.Verbose("exchange %s: no reply within %v, retrying (%d/%d)",
					x.id, x.cfg.timeout, x.attempts+1, x.cfg.maxAttempts)
				x.to(StateSending)
				continue
			}
			x.to(StateRetryExhausted)

		case StateRetryExhausted:
			x.finish(nil, &perrors.ExhaustedError{
				Attempts: x.attempts,
				Timeout:  x.cfg.timeout,
				Last:     x.lastBad,
			})
		}
	}
	return x.result, x.err
}

// discard drops the current reply and goes back to waiting on the same
// timer, so the remaining window is neither reset nor extended.
func (x *run[T]) discard(format string, args ...interface{}) {
	x.opts.metrics.DatagramDiscarded()
	x.opts.logger.Debug("exchange %s: discarded reply "+format, append([]interface{}{x.id}, args...)...)
	x.reply = transport.Datagram{}
	x.to(StateAwaitingReply)
}

func (x *run[T]) cancelled(ctx context.Context) error {
	return &perrors.CancelledError{Attempts: x.attempts, Cause: context.Cause(ctx)}
}

// errWindowClosed signals that the attempt's timer fired.
var errWindowClosed = perrors.New("reply window closed")

type received struct {
	dg  transport.Datagram
	err error
}

// await races one receive against the attempt timer and ctx.  The
// receive runs under its own context and is always joined before
// await returns, so no read outlives the call.
func (x *run[T]) await(ctx context.Context) (transport.Datagram, error) {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan received, 1)
	go func() {
		dg, err := x.conn.Receive(rctx, x.opts.bufSize)
		results <- received{dg, err}
	}()

	select {
	case r := <-results:
		return r.dg, r.err
	case <-x.timer.C():
		cancel()
		<-results
		return transport.Datagram{}, errWindowClosed
	case <-ctx.Done():
		cancel()
		<-results
		return transport.Datagram{}, ctx.Err()
	}
}

// Receive waits for one datagram from any source that c decodes.
// Undecodable and truncated datagrams are skipped; only ctx bounds the
// wait.  WithClock, WithLogger, WithMetrics and WithBufferSize apply.
func Receive[T any](ctx context.Context, conn transport.PacketConn, c codec.Codec[T], opts ...Option) (*Result[T], error) {
	o := newOptions(opts)
	start := o.clock.Now()
	for {
		dg, err := conn.Receive(ctx, o.bufSize)
		if err != nil {
			return nil, err
		}
		if dg.Truncated {
			o.metrics.DatagramDiscarded()
			o.logger.Debug("receive: %v", truncated(c.Name(), dg))
			continue
		}
		v, err := c.Decode(dg.Data)
		if err != nil {
			o.metrics.DatagramDiscarded()
			o.logger.Debug("receive: from %s: %v", dg.Addr, err)
			continue
		}
		return assemble(uuid.New(), v, dg.Addr, 0, o.clock.Now().Sub(start)), nil
	}
}

func truncated(codecName string, dg transport.Datagram) error {
	return &perrors.DecodeError{Codec: codecName, Len: len(dg.Data), Err: perrors.ErrTruncated}
}
