package exchange

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	perrors "polygon/internal/errors"
	"polygon/internal/retry"
	"polygon/internal/transport"
)

// Retransmitter sends the same datagram to a target repeatedly on a
// schedule, without waiting for replies.  It sends, waits the
// schedule's next delay, and sends again until the schedule ends, the
// context is done or Pause is called.
type Retransmitter struct {
	conn     transport.PacketConn
	target   *net.UDPAddr
	schedule retry.Schedule
	opts     options

	paused atomic.Bool

	mu      sync.Mutex
	running bool
	wake    chan struct{}
	done    chan struct{}
	sent    int
	err     error
}

// NewRetransmitter builds a Retransmitter.  Of the engine options only
// WithClock, WithLogger and WithMetrics apply.
func NewRetransmitter(conn transport.PacketConn, target *net.UDPAddr, schedule retry.Schedule, opts ...Option) *Retransmitter {
	return &Retransmitter{conn: conn, target: target, schedule: schedule, opts: newOptions(opts)}
}

// Start begins retransmitting data in the background.  data is copied.
// It fails if a previous run has not finished.
func (r *Retransmitter) Start(ctx context.Context, data []byte) error {
	if r.target == nil {
		return perrors.WrapSend("<nil>", perrors.ErrNoDestination)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return perrors.New("retransmitter already running")
	}
	r.running = true
	r.sent, r.err = 0, nil
	r.wake = make(chan struct{}, 1)
	r.done = make(chan struct{})

	go r.loop(ctx, append([]byte(nil), data...), r.wake, r.done)
	return nil
}

// Pause stops the current run once it has sent at least once, and
// keeps later runs to a single send until Resume.
func (r *Retransmitter) Pause() {
	r.paused.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wake != nil {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// Resume clears a previous Pause.
func (r *Retransmitter) Resume() { r.paused.Store(false) }

// Paused reports whether Pause is in effect.
func (r *Retransmitter) Paused() bool { return r.paused.Load() }

// Wait blocks until the current run ends and returns how many datagrams
// it sent.  err is the send failure that ended the run, if any; a run
// ended by its schedule, by Pause or by its context returns nil.
func (r *Retransmitter) Wait() (sent int, err error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return 0, nil
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent, r.err
}

func (r *Retransmitter) loop(ctx context.Context, data []byte, wake <-chan struct{}, done chan<- struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	for i := 0; ; i++ {
		d, ok := r.schedule.Next(i)
		if !ok {
			return
		}
		if err := r.conn.SendTo(ctx, data, r.target); err != nil {
			if ctx.Err() == nil {
				r.opts.logger.Warn("retransmit to %s: %v", r.target, err)
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}
		r.opts.metrics.AttemptStarted(i > 0)
		r.mu.Lock()
		r.sent++
		r.mu.Unlock()
		r.opts.logger.Debug("retransmit %d to %s, next in %v", i+1, r.target, d)

		if r.paused.Load() {
			return
		}
		t := r.opts.clock.NewTimer(d)
		select {
		case <-t.C():
		case <-wake:
			t.Stop()
			return
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}
