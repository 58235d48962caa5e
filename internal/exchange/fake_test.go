package exchange

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"polygon/internal/transport"
)

// ── fake transport ───────────────────────────────────────────────────

// fakeConn is an in-memory PacketConn.  Tests push replies into inbox
// and observe sends on the sends channel.
type fakeConn struct {
	mu       sync.Mutex
	sent     [][]byte
	calls    int
	sendErrs []error // returned by successive SendTo calls, nil = succeed

	sends     chan []byte
	receiving chan struct{} // one signal per Receive call
	inbox     chan transport.Datagram
	active    atomic.Int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		sends:     make(chan []byte, 64),
		receiving: make(chan struct{}, 64),
		inbox:     make(chan transport.Datagram),
	}
}

func (f *fakeConn) SendTo(ctx context.Context, b []byte, _ *net.UDPAddr) error {
	f.mu.Lock()
	f.calls++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			f.mu.Unlock()
			return err
		}
	}
	cp := append([]byte(nil), b...)
	f.sent = append(f.sent, cp)
	f.mu.Unlock()
	f.sends <- cp
	return nil
}

func (f *fakeConn) Receive(ctx context.Context, _ int) (transport.Datagram, error) {
	f.active.Add(1)
	defer f.active.Add(-1)
	f.receiving <- struct{}{}
	select {
	case dg := <-f.inbox:
		return dg, nil
	case <-ctx.Done():
		return transport.Datagram{}, ctx.Err()
	}
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeConn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ── manual clock ─────────────────────────────────────────────────────

// manualClock only moves when Advance is called.  Every timer it creates
// is also published on created so tests can wait for an attempt's window
// to be armed before moving time.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	created chan *manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		created: make(chan *manualTimer, 64),
	}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	t := &manualTimer{clock: c, at: c.now.Add(d), c: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.created <- t
	return t
}

// Advance moves time forward and fires every due timer.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			t.c <- c.now
		}
	}
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	c       chan time.Time
	fired   bool
	stopped bool
}

func (t *manualTimer) C() <-chan time.Time { return t.c }

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.fired && !t.stopped
	t.stopped = true
	return active
}
