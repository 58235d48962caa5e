package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	perrors "polygon/internal/errors"
	"polygon/internal/metrics"
	"polygon/util"
)

// Handle is a bound UDP socket.
//
// Sends and receives may run concurrently, but a Handle carries no
// demultiplexing key: two exchanges driving one Handle at the same time
// would steal each other's replies.  Callers that share one socket
// between exchanges must serialize them externally.
type Handle struct {
	conn    *net.UDPConn
	logger  *util.Logger
	metrics *metrics.Collector

	readMu sync.Mutex // one Receive at a time; each owns the read deadline

	mu     sync.Mutex
	closed bool
}

// SetLogger attaches a logger for receive-loop diagnostics.  Call it
// before the handle is in use.
func (h *Handle) SetLogger(l *util.Logger) { h.logger = l }

// SetMetrics attaches a collector that counts datagrams and bytes.
// Call it before the handle is in use.
func (h *Handle) SetMetrics(m *metrics.Collector) { h.metrics = m }

// Bind opens a UDP socket on the first of addrs that can be bound.
// Every failure here, from an unparseable address to EADDRINUSE, is a
// *errors.BindError; a Handle that was returned never reports one.
func Bind(ctx context.Context, addrs ...string) (*Handle, error) {
	if len(addrs) == 0 {
		return nil, perrors.WrapBind("", fmt.Errorf("no bind address given"))
	}

	var errs []error
	var lc net.ListenConfig
	for _, addr := range addrs {
		if _, err := util.ResolveUDPAddr(addr, false, true); err != nil {
			errs = append(errs, err)
			continue
		}
		pc, err := lc.ListenPacket(ctx, "udp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return &Handle{conn: pc.(*net.UDPConn)}, nil
	}
	return nil, perrors.WrapBind(strings.Join(addrs, ","), perrors.Join(errs...))
}

// LocalAddr returns the bound address, including the port picked by the
// kernel when binding port 0.
func (h *Handle) LocalAddr() *net.UDPAddr {
	return h.conn.LocalAddr().(*net.UDPAddr)
}

// SendTo implements [PacketConn].  Oversized datagrams are rejected
// before reaching the socket.
func (h *Handle) SendTo(ctx context.Context, b []byte, peer *net.UDPAddr) error {
	dest := "<nil>"
	if peer != nil {
		dest = peer.String()
	}
	switch {
	case h.isClosed():
		return perrors.WrapSend(dest, perrors.ErrClosed)
	case peer == nil:
		return perrors.WrapSend(dest, perrors.ErrNoDestination)
	case len(b) > MaxDatagramSize:
		return perrors.WrapSend(dest, fmt.Errorf("%w: %d bytes", perrors.ErrDatagramTooLarge, len(b)))
	}
	if err := ctx.Err(); err != nil {
		return perrors.WrapSend(dest, err)
	}

	deadline, _ := ctx.Deadline() // zero clears any previous deadline
	if err := h.conn.SetWriteDeadline(deadline); err != nil {
		return perrors.WrapSend(dest, err)
	}
	if _, err := h.conn.WriteToUDP(b, peer); err != nil {
		if h.isClosed() {
			err = perrors.ErrClosed
		}
		return perrors.WrapSend(dest, err)
	}
	h.metrics.DatagramSent(len(b))
	return nil
}

// Receive implements [PacketConn].  A capacity outside 1..64KiB means
// "the largest datagram".  Datagrams longer than capacity are
// truncated by the kernel.
func (h *Handle) Receive(ctx context.Context, capacity int) (Datagram, error) {
	if h.isClosed() {
		return Datagram{}, perrors.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Datagram{}, err
	}
	if capacity <= 0 || capacity > util.DefaultBufSize {
		capacity = util.DefaultBufSize
	}

	h.readMu.Lock()
	defer h.readMu.Unlock()

	deadline, hasDeadline := ctx.Deadline()
	if err := h.conn.SetReadDeadline(deadline); err != nil {
		return Datagram{}, h.readErr(err)
	}

	// Cancellation expires the read deadline so ReadFromUDP unblocks.
	// The watcher is joined before returning so it can never touch the
	// deadline of a later Receive.
	readDone := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			_ = h.conn.SetReadDeadline(time.Now())
		case <-readDone:
		}
	}()
	defer func() {
		close(readDone)
		<-watcherDone
	}()

	buf := util.GetBuf()
	defer util.PutBuf(buf)

	// Read into the whole buffer so a datagram over capacity is seen
	// as such rather than cut silently by the kernel.
	n, from, err := h.conn.ReadFromUDP(*buf)
	if err != nil {
		if util.IsDeadline(err) {
			if cerr := ctx.Err(); cerr != nil {
				return Datagram{}, cerr
			}
			if hasDeadline && !time.Now().Before(deadline) {
				return Datagram{}, context.DeadlineExceeded
			}
		}
		return Datagram{}, h.readErr(err)
	}

	h.metrics.DatagramReceived(n)
	dg := Datagram{Addr: from}
	if n > capacity {
		n, dg.Truncated = capacity, true
	}
	dg.Data = append([]byte(nil), (*buf)[:n]...)
	return dg, nil
}

// Stream receives datagrams in the background and delivers them on the
// returned channel until ctx is done or the handle is closed, then
// closes the channel.  Transient read errors are logged and skipped.
// Stream takes the read side: do not call Receive while it runs.
func (h *Handle) Stream(ctx context.Context, capacity int) <-chan Datagram {
	out := make(chan Datagram)
	go func() {
		defer close(out)
		for {
			dg, err := h.Receive(ctx, capacity)
			if err != nil {
				if ctx.Err() != nil || perrors.Is(err, perrors.ErrClosed) {
					return
				}
				h.logger.Warn("receive error: %v", err)
				continue
			}
			select {
			case out <- dg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close releases the socket.  It is safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.conn.Close()
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) readErr(err error) error {
	if h.isClosed() || util.IsClosed(err) {
		return perrors.ErrClosed
	}
	return perrors.Wrap("read", h.conn.LocalAddr().String(), err)
}

// Compile-time interface satisfaction check.
var _ PacketConn = (*Handle)(nil)
