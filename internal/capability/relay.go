package capability

import (
	"context"
	"fmt"

	perrors "polygon/internal/errors"
	"polygon/internal/session"
)

// Echo sends every datagram back to its source unchanged.
type Echo struct{}

// Handle replies with the datagram's own bytes.
func (Echo) Handle(ctx context.Context, sess *session.Session) error {
	sess.Logger.Verbose("echo %d bytes to %s", len(sess.Datagram.Data), sess.Datagram.Addr)
	if err := sess.Reply(ctx, sess.Datagram.Data); err != nil {
		// A peer we cannot answer should not stop the responder.
		sess.Logger.Warn("echo to %s: %v", sess.Datagram.Addr, err)
	}
	return nil
}

// Print writes each datagram to the session's output, one line each.
// Render turns the bytes into text; a Render error means the datagram
// is not a payload this printer understands, and it is skipped.
// Truncated datagrams are skipped too.
type Print struct {
	Render func(b []byte) (string, error)
}

// Handle prints the datagram and its source.
func (p *Print) Handle(_ context.Context, sess *session.Session) error {
	if sess.Datagram.Truncated {
		sess.Logger.Verbose("skipping datagram from %s: %v", sess.Datagram.Addr, perrors.ErrTruncated)
		return ErrSkipped
	}
	text, err := p.Render(sess.Datagram.Data)
	if err != nil {
		sess.Logger.Verbose("skipping datagram from %s: %v", sess.Datagram.Addr, err)
		return ErrSkipped
	}
	if _, err := fmt.Fprintf(sess.Stdout, "%s\t%s\n", sess.Datagram.Addr, text); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
