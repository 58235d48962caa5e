package util

import (
	"net"
	"testing"
)

// BenchmarkBufPool measures the allocation advantage of sync.Pool
// buffer reuse versus fresh allocation of a full datagram buffer.
func BenchmarkBufPool(b *testing.B) {
	b.Run("pool", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf := GetBuf()
			_ = (*buf)[0]
			PutBuf(buf)
		}
	})
	b.Run("alloc", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf := make([]byte, DefaultBufSize)
			_ = buf[0]
		}
	})
}

// BenchmarkSameEndpoint measures source filtering cost per datagram.
func BenchmarkSameEndpoint(b *testing.B) {
	x := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 9000}
	y := &net.UDPAddr{IP: net.ParseIP("::ffff:10.0.0.1"), Port: 9000}
	for i := 0; i < b.N; i++ {
		_ = SameEndpoint(x, y)
	}
}
