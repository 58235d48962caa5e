// Package transport owns the UDP socket an exchange runs over.
// Transports handle the "how" of datagram movement: binding, sending
// to a peer, and cancellable receives from any peer.  What the bytes
// mean is the codec's job, and which datagrams count as replies is the
// exchange engine's.
package transport

import (
	"context"
	"net"
)

// MaxDatagramSize is the largest UDP payload that fits an IPv4
// datagram without fragmentation at the IP layer's size limit.
const MaxDatagramSize = 65507

// Datagram is one received UDP packet and the address it came from.
// Truncated is set when the datagram was longer than the capacity
// asked for; Data then holds only its first capacity bytes.
type Datagram struct {
	Data      []byte
	Addr      *net.UDPAddr
	Truncated bool
}

// PacketConn is the part of a transport the exchange engine drives.
// *Handle implements it; tests substitute an in-memory fake.
type PacketConn interface {
	// SendTo transmits b as a single datagram to peer.  Failures are
	// *errors.SendError.
	SendTo(ctx context.Context, b []byte, peer *net.UDPAddr) error

	// Receive blocks until a datagram from any source arrives or ctx is
	// done, in which case ctx.Err() is returned.  At most capacity
	// bytes of the datagram are returned, with Truncated set when
	// there were more.
	Receive(ctx context.Context, capacity int) (Datagram, error)
}
