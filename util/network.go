package util

import (
	"fmt"
	"net"
	"strconv"
)

// ResolveUDPAddr parses a "host:port" string into a UDP address.  With
// noDNS the host must already be a numeric IP.  Port 0 is accepted only
// when allowZero is set (local binds pick an ephemeral port).
func ResolveUDPAddr(addr string, noDNS, allowZero bool) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 || (port == 0 && !allowZero) {
		return nil, fmt.Errorf("invalid port %q in %q", portStr, addr)
	}
	if noDNS && host != "" && net.ParseIP(host) == nil {
		return nil, fmt.Errorf("cannot parse %q as an IP address (DNS disabled)", host)
	}
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	return ua, nil
}

// SameEndpoint reports whether a and b name the same IP and port.
// IPv4-mapped IPv6 addresses compare equal to their IPv4 form.
func SameEndpoint(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns a UDP port on 127.0.0.1 that was free at the
// time of the call.
func FindFreePort() (int, error) {
	c, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).Port, nil
}
