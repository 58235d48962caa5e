// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of datagram exchanges.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a polygon process.
// A nil Collector is safe to use: all methods become no-ops.
type Collector struct {
	exchangesActive atomic.Int64
	exchangesOK     atomic.Int64
	exchangesFailed atomic.Int64
	attempts        atomic.Int64
	retries         atomic.Int64
	datagramsIn     atomic.Int64
	datagramsOut    atomic.Int64
	discarded       atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64
	errorsTotal     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Exchange metrics ─────────────────────────────────────────────────

// ExchangeStarted increments the active exchange gauge.
func (c *Collector) ExchangeStarted() {
	if c == nil {
		return
	}
	c.exchangesActive.Add(1)
}

// ExchangeFinished decrements the active gauge and counts the outcome.
func (c *Collector) ExchangeFinished(ok bool) {
	if c == nil {
		return
	}
	c.exchangesActive.Add(-1)
	if ok {
		c.exchangesOK.Add(1)
	} else {
		c.exchangesFailed.Add(1)
	}
}

// ActiveExchanges returns the number of exchanges in flight.
func (c *Collector) ActiveExchanges() int64 {
	if c == nil {
		return 0
	}
	return c.exchangesActive.Load()
}

// SucceededExchanges returns the lifetime count of successful exchanges.
func (c *Collector) SucceededExchanges() int64 {
	if c == nil {
		return 0
	}
	return c.exchangesOK.Load()
}

// FailedExchanges returns the lifetime count of failed exchanges,
// cancellations included.
func (c *Collector) FailedExchanges() int64 {
	if c == nil {
		return 0
	}
	return c.exchangesFailed.Load()
}

// AttemptStarted records one transmission attempt.  Every attempt after
// the first of an exchange is also a retry.
func (c *Collector) AttemptStarted(retry bool) {
	if c == nil {
		return
	}
	c.attempts.Add(1)
	if retry {
		c.retries.Add(1)
	}
}

// Attempts returns the total number of transmission attempts.
func (c *Collector) Attempts() int64 {
	if c == nil {
		return 0
	}
	return c.attempts.Load()
}

// Retries returns the number of attempts that were retransmissions.
func (c *Collector) Retries() int64 {
	if c == nil {
		return 0
	}
	return c.retries.Load()
}

// ── Datagram metrics ─────────────────────────────────────────────────

// DatagramReceived records one inbound datagram of n bytes.
func (c *Collector) DatagramReceived(n int) {
	if c == nil {
		return
	}
	c.datagramsIn.Add(1)
	c.bytesIn.Add(int64(n))
}

// DatagramSent records one outbound datagram of n bytes.
func (c *Collector) DatagramSent(n int) {
	if c == nil {
		return
	}
	c.datagramsOut.Add(1)
	c.bytesOut.Add(int64(n))
}

// DatagramDiscarded records an inbound datagram dropped because it did
// not decode or came from the wrong peer.
func (c *Collector) DatagramDiscarded() {
	if c == nil {
		return
	}
	c.discarded.Add(1)
}

// DatagramsIn returns the total number of datagrams received.
func (c *Collector) DatagramsIn() int64 {
	if c == nil {
		return 0
	}
	return c.datagramsIn.Load()
}

// DatagramsOut returns the total number of datagrams sent.
func (c *Collector) DatagramsOut() int64 {
	if c == nil {
		return 0
	}
	return c.datagramsOut.Load()
}

// Discarded returns the number of datagrams dropped.
func (c *Collector) Discarded() int64 {
	if c == nil {
		return 0
	}
	return c.discarded.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	ExchangesActive  int64  `json:"exchanges_active"`
	ExchangesOK      int64  `json:"exchanges_ok"`
	ExchangesFailed  int64  `json:"exchanges_failed"`
	Attempts         int64  `json:"attempts"`
	Retries          int64  `json:"retries"`
	DatagramsIn      int64  `json:"datagrams_in"`
	DatagramsOut     int64  `json:"datagrams_out"`
	Discarded        int64  `json:"discarded"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Millisecond).String(),
		ExchangesActive: c.exchangesActive.Load(),
		ExchangesOK:     c.exchangesOK.Load(),
		ExchangesFailed: c.exchangesFailed.Load(),
		Attempts:        c.attempts.Load(),
		Retries:         c.retries.Load(),
		DatagramsIn:     c.datagramsIn.Load(),
		DatagramsOut:    c.datagramsOut.Load(),
		Discarded:       c.discarded.Load(),
		BytesIn:         c.bytesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
