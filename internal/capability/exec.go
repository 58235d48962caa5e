package capability

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"polygon/internal/session"
	"polygon/internal/transport"
)

// Exec answers each datagram with the output of a child process that
// reads the datagram on stdin.  Either Program (-e) or Command (-c)
// must be set.
type Exec struct {
	Program string // -e: execute a program directly
	Command string // -c: execute via the system shell
}

// Handle runs the child process once for the datagram and replies with
// its stdout.  A failing command is logged and produces no reply.
func (e *Exec) Handle(ctx context.Context, sess *session.Session) error {
	var cmd *exec.Cmd

	switch {
	case e.Command != "":
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd.exe", "/C", e.Command)
		} else {
			cmd = exec.CommandContext(ctx, "/bin/sh", "-c", e.Command)
		}
	case e.Program != "":
		cmd = exec.CommandContext(ctx, e.Program)
	default:
		return fmt.Errorf("no command specified for exec mode")
	}

	var out bytes.Buffer
	cmd.Stdin = bytes.NewReader(sess.Datagram.Data)
	cmd.Stdout = &out
	cmd.Stderr = sess.Stdout

	sess.Logger.Debug("exec: %s", cmd.String())

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess.Logger.Warn("exec %q for %s: %v", cmd.Path, sess.Datagram.Addr, err)
		return nil
	}
	if out.Len() == 0 {
		return nil
	}
	if out.Len() > transport.MaxDatagramSize {
		sess.Logger.Warn("exec output of %d bytes does not fit a datagram; truncated", out.Len())
		out.Truncate(transport.MaxDatagramSize)
	}
	if err := sess.Reply(ctx, out.Bytes()); err != nil {
		sess.Logger.Warn("reply to %s: %v", sess.Datagram.Addr, err)
	}
	return nil
}
