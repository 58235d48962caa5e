package core

import (
	"context"
	"fmt"

	"polygon/internal/capability"
	perrors "polygon/internal/errors"
	"polygon/internal/session"
)

// ServeMode binds a socket and runs a capability on every datagram that
// arrives, from any source.  recv (print) and echo (reply) are both
// ServeModes.  With Count > 0 it returns after Count datagrams were
// handled; otherwise it runs until the context ends.
type ServeMode struct {
	base
	Capability capability.Capability
	Count      int
}

// Run serves until the context is done, Count is reached, or the
// capability fails.
func (m *ServeMode) Run(ctx context.Context) error {
	h, err := m.bind(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.Logger.Verbose("listening on %s (udp)", h.LocalAddr())

	handled := 0
	for dg := range h.Stream(ctx, m.BufferSize) {
		m.Logger.Debug("%d bytes from %s", len(dg.Data), dg.Addr)

		sess := session.New(h, dg, m.stdout(), m.Logger)
		err := m.Capability.Handle(ctx, sess)
		switch {
		case perrors.Is(err, capability.ErrSkipped):
			m.Metrics.DatagramDiscarded()
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("handle datagram from %s: %w", dg.Addr, err)
		}

		handled++
		if m.Count > 0 && handled >= m.Count {
			return nil
		}
	}
	return nil
}
