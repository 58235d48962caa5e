// Package session represents the handling of one received datagram,
// binding it to the socket it arrived on and to the local output.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it writes to os.Stdout or a
// test buffer, or whether replies leave through a real socket.
package session

import (
	"context"
	"io"

	"polygon/internal/transport"
	"polygon/util"
)

// Session encapsulates the runtime context for a single datagram.
type Session struct {
	Conn     transport.PacketConn
	Datagram transport.Datagram
	Stdout   io.Writer
	Logger   *util.Logger
}

// New creates a Session for dg received on conn.
func New(conn transport.PacketConn, dg transport.Datagram, stdout io.Writer, logger *util.Logger) *Session {
	return &Session{
		Conn:     conn,
		Datagram: dg,
		Stdout:   stdout,
		Logger:   logger,
	}
}

// Reply sends b back to the datagram's source.
func (s *Session) Reply(ctx context.Context, b []byte) error {
	return s.Conn.SendTo(ctx, b, s.Datagram.Addr)
}
