package core

import (
	"context"
	"fmt"

	"polygon/internal/exchange"
)

// SendMode sends one datagram to the destination and returns without
// waiting for a reply.
type SendMode[T any] struct {
	base
	Config exchange.Config
	Kind   Kind[T]
	Value  T
}

// Run binds, sends once, and closes the socket.
func (m *SendMode[T]) Run(ctx context.Context) error {
	h, err := m.bind(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	e := exchange.New(h, m.Kind.Codec, m.Config,
		exchange.WithLogger(m.Logger),
		exchange.WithMetrics(m.Metrics))
	if err := e.Send(ctx, m.Value); err != nil {
		return fmt.Errorf("send to %s: %w", m.Config.Target(), err)
	}
	m.Logger.Verbose("sent %s to %s", m.Kind.Format(m.Value), m.Config.Target())
	return nil
}
