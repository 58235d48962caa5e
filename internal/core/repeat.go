package core

import (
	"context"
	"fmt"

	"polygon/internal/exchange"
	"polygon/internal/retry"
	"polygon/internal/transport"
	"polygon/util"
)

// RepeatMode retransmits one datagram on a schedule: explicit delays,
// a fixed interval, or exponential backoff.
// With UntilReply, the first decodable datagram from the destination is
// printed and pauses the retransmission.
type RepeatMode[T any] struct {
	base
	Config     exchange.Config
	Kind       Kind[T]
	Value      T
	Schedule   retry.Schedule
	UntilReply bool
}

// Run sends on the schedule and reports how many datagrams went out.
func (m *RepeatMode[T]) Run(ctx context.Context) error {
	data, err := m.Kind.Codec.Encode(m.Value)
	if err != nil {
		return err
	}

	h, err := m.bind(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := exchange.NewRetransmitter(h, m.Config.Target(), m.Schedule, m.options()...)
	if err := r.Start(ctx, data); err != nil {
		return err
	}

	listening := make(chan struct{})
	if m.UntilReply {
		go func() {
			defer close(listening)
			m.awaitReply(ctx, h, r)
		}()
	} else {
		close(listening)
	}

	sent, err := r.Wait()
	cancel()
	<-listening

	m.Logger.Verbose("sent %d datagram(s) to %s", sent, m.Config.Target())
	if err != nil {
		return fmt.Errorf("repeat to %s: %w", m.Config.Target(), err)
	}
	return nil
}

func (m *RepeatMode[T]) awaitReply(ctx context.Context, conn transport.PacketConn, r *exchange.Retransmitter) {
	for {
		res, err := exchange.Receive(ctx, conn, m.Kind.Codec, m.options()...)
		if err != nil {
			return
		}
		if m.Config.FilterSource() && !util.SameEndpoint(res.From, m.Config.Target()) {
			continue
		}
		fmt.Fprintf(m.stdout(), "%s\t%s\n", res.From, m.Kind.Format(res.Payload))
		r.Pause()
		return
	}
}
