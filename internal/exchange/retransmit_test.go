package exchange

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "polygon/internal/errors"
	"polygon/internal/retry"
)

func newTestRetransmitter(s retry.Schedule) (*Retransmitter, *fakeConn, *manualClock) {
	conn, clock := newFakeConn(), newManualClock()
	return NewRetransmitter(conn, target, s, WithClock(clock)), conn, clock
}

func step(t *testing.T, conn *fakeConn, clock *manualClock) *manualTimer {
	t.Helper()
	select {
	case <-conn.sends:
	case <-time.After(2 * time.Second):
		t.Fatal("no send")
	}
	select {
	case tm := <-clock.created:
		return tm
	case <-time.After(2 * time.Second):
		t.Fatal("no delay armed")
		return nil
	}
}

func TestRetransmitter_FollowsDelays(t *testing.T) {
	r, conn, clock := newTestRetransmitter(retry.MillisDelays(10, 20, 30))
	require.NoError(t, r.Start(context.Background(), []byte("hello")))

	for _, d := range []time.Duration{10, 20, 30} {
		tm := step(t, conn, clock)
		assert.Equal(t, clock.Now().Add(d*time.Millisecond), tm.at)
		clock.Advance(d * time.Millisecond)
	}

	sent, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	for _, b := range conn.sent {
		assert.Equal(t, "hello", string(b))
	}
}

func TestRetransmitter_PauseStopsRun(t *testing.T) {
	r, conn, clock := newTestRetransmitter(retry.Fixed{Interval: time.Second})
	require.NoError(t, r.Start(context.Background(), []byte("x")))

	step(t, conn, clock)
	r.Pause()

	sent, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

// TestRetransmitter_PauseBeforeStart verifies a pause still lets the
// first datagram out.
func TestRetransmitter_PauseBeforeStart(t *testing.T) {
	r, conn, _ := newTestRetransmitter(retry.Fixed{Interval: time.Second})
	r.Pause()
	require.NoError(t, r.Start(context.Background(), []byte("x")))

	sent, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, conn.sentCount())

	r.Resume()
	assert.False(t, r.Paused())
}

func TestRetransmitter_ResumeAllowsNextRun(t *testing.T) {
	r, conn, clock := newTestRetransmitter(retry.Delays{time.Millisecond, time.Millisecond})
	r.Pause()
	require.NoError(t, r.Start(context.Background(), []byte("a")))
	_, _ = r.Wait()
	<-conn.sends

	r.Resume()
	require.NoError(t, r.Start(context.Background(), []byte("b")))
	for i := 0; i < 2; i++ {
		step(t, conn, clock)
		clock.Advance(time.Millisecond)
	}
	sent, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 3, conn.sentCount())
}

func TestRetransmitter_SendErrorEndsRun(t *testing.T) {
	r, conn, _ := newTestRetransmitter(retry.Fixed{Interval: time.Second})
	conn.sendErrs = []error{perrors.WrapSend(target.String(), syscall.EHOSTUNREACH)}
	require.NoError(t, r.Start(context.Background(), []byte("x")))

	sent, err := r.Wait()
	var se *perrors.SendError
	require.ErrorAs(t, err, &se)
	assert.Zero(t, sent)
}

func TestRetransmitter_ContextEndsRun(t *testing.T) {
	r, conn, clock := newTestRetransmitter(retry.Fixed{Interval: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx, []byte("x")))

	step(t, conn, clock)
	cancel()

	sent, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRetransmitter_StartWhileRunning(t *testing.T) {
	r, conn, clock := newTestRetransmitter(retry.Fixed{Interval: time.Second})
	require.NoError(t, r.Start(context.Background(), []byte("x")))
	step(t, conn, clock)

	assert.Error(t, r.Start(context.Background(), []byte("y")))

	r.Pause()
	_, _ = r.Wait()
}

func TestRetransmitter_NoTarget(t *testing.T) {
	r := NewRetransmitter(newFakeConn(), nil, retry.Delays{0})
	err := r.Start(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, perrors.ErrNoDestination)

	sent, err := r.Wait()
	assert.Zero(t, sent)
	assert.NoError(t, err)
}

func TestRetransmitter_BackoffSchedule(t *testing.T) {
	b := &retry.Backoff{InitialDelay: 10 * time.Millisecond, Multiplier: 2, MaxAttempts: 3}
	r, conn, clock := newTestRetransmitter(b.Schedule())
	require.NoError(t, r.Start(context.Background(), []byte("x")))

	for _, d := range []time.Duration{10, 20, 40} {
		tm := step(t, conn, clock)
		assert.Equal(t, clock.Now().Add(d*time.Millisecond), tm.at)
		clock.Advance(d * time.Millisecond)
	}

	sent, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, sent, "MaxAttempts counts sends")
}
