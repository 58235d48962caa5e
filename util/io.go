package util

import (
	"errors"
	"io"
	"net"
	"os"
)

// DefaultBufSize is the receive buffer size: the largest payload an
// IPv4 UDP datagram can carry plus headroom to the 64 KiB boundary.
const DefaultBufSize = 64 * 1024

// IsClosed reports errors that mean the socket was shut down rather
// than that an operation failed.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsDeadline reports errors caused by an expired read or write
// deadline.
func IsDeadline(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
