// Package capability defines what happens to a received datagram.
// Each Capability encapsulates a single behaviour (print it, echo it,
// answer it through a program) and operates on a Session rather than
// a raw socket, which keeps capabilities testable and decoupled from
// transport details.
package capability

import (
	"context"

	perrors "polygon/internal/errors"
	"polygon/internal/session"
)

// ErrSkipped is returned by capabilities that deliberately ignored a
// datagram.  Serving loops keep going and do not count it.
var ErrSkipped = perrors.New("datagram skipped")

// Capability handles a single datagram according to a specific
// behaviour.
type Capability interface {
	// Handle runs the capability against the given session.  Any
	// error other than ErrSkipped ends the serving loop.
	Handle(ctx context.Context, sess *session.Session) error
}

// Func adapts a function to [Capability].
type Func func(ctx context.Context, sess *session.Session) error

// Handle implements [Capability].
func (f Func) Handle(ctx context.Context, sess *session.Session) error { return f(ctx, sess) }
