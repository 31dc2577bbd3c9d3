package protocol

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcpcheck/internal/errors"
)

func TestCorrelator_SkipsNotificationsAndOtherIDs(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	pending := correlator.Begin()

	go func() {
		time.Sleep(20 * time.Millisecond)
		inbox.Append(notification(t))
		inbox.Append(response(t, 4))
		inbox.Append(mustDecode(t, `{"jsonrpc":"2.0","id":5,"method":"ping"}`))
		inbox.Append(notification(t))
		inbox.Append(response(t, 5))
	}()

	msg, err := pending.Wait(context.Background(), 5, time.Second)
	require.NoError(t, err)
	require.True(t, msg.IsResponseTo(5))
	require.Equal(t, 4, msg.Seq)
	require.JSONEq(t, `{"id":5}`, string(msg.Result))

	require.Zero(t, correlator.Pending())
}

func TestCorrelator_ResponseBeforeWaitIsSeen(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	pending := correlator.Begin()
	require.Equal(t, 0, pending.Offset())

	// The server answers before the caller starts waiting.
	inbox.Append(response(t, 1))

	msg, err := pending.Wait(context.Background(), 1, time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, msg.Seq)
}

func TestCorrelator_IgnoresResponsesBeforeStartOffset(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	inbox.Append(response(t, 1))

	_, err := correlator.WaitFor(context.Background(), 1, 50*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
}

func TestCorrelator_ReturnsEarliestMatch(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	pending := correlator.Begin()

	inbox.Append(response(t, 2))
	inbox.Append(mustDecode(t, `{"jsonrpc":"2.0","id":2,"result":{"second":true}}`))

	msg, err := pending.Wait(context.Background(), 2, time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, msg.Seq)
}

func TestCorrelator_TimeoutWithinBudget(t *testing.T) {
	inbox := NewInbox()
	poll := 20 * time.Millisecond
	correlator := NewCorrelator(slog.Default(), inbox, poll)

	// Unrelated traffic keeps arriving during the wait.
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Millisecond):
				inbox.Append(notification(t))
			}
		}
	}()

	timeout := 150 * time.Millisecond
	start := time.Now()

	_, err := correlator.WaitFor(context.Background(), 9, timeout)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errors.ErrRequestTimeout)

	timeoutErr, ok := stderrors.AsType[*errors.TimeoutError](err)
	require.True(t, ok)
	require.Equal(t, int64(9), timeoutErr.ID)
	require.Equal(t, timeout, timeoutErr.Timeout)

	require.GreaterOrEqual(t, elapsed, timeout)
	require.Less(t, elapsed, timeout+poll+500*time.Millisecond)
}

func TestCorrelator_ZeroTimeoutScansOnce(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	pending := correlator.Begin()
	inbox.Append(response(t, 3))

	msg, err := pending.Wait(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Equal(t, 0, msg.Seq)

	_, err = correlator.WaitFor(context.Background(), 4, 0)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
}

func TestCorrelator_StreamEndFailsFast(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, time.Second)
	cause := stderrors.New("broken pipe")

	pending := correlator.Begin()

	go func() {
		time.Sleep(20 * time.Millisecond)
		inbox.Append(notification(t))
		inbox.Close(cause)
	}()

	start := time.Now()
	_, err := pending.Wait(context.Background(), 1, 10*time.Second)

	require.ErrorIs(t, err, errors.ErrTransportClosed)
	require.ErrorIs(t, err, cause)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCorrelator_ResponseBeforeStreamEndIsReturned(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, time.Second)

	pending := correlator.Begin()

	inbox.Append(response(t, 1))
	inbox.Close(nil)

	msg, err := pending.Wait(context.Background(), 1, time.Second)
	require.NoError(t, err)
	require.True(t, msg.IsResponseTo(1))
}

func TestCorrelator_ContextCancellation(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := correlator.WaitFor(ctx, 1, 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, correlator.Pending())
}

func TestCorrelator_ConcurrentWaitsGetOwnResponses(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	const n = 20

	pendings := make([]*Pending, n)
	for i := range n {
		pendings[i] = correlator.Begin()
	}

	require.Equal(t, n, correlator.Pending())

	results := make([]*Message, n)

	var wg sync.WaitGroup

	for i := range n {
		wg.Go(func() {
			msg, err := pendings[i].Wait(context.Background(), int64(i), 2*time.Second)
			if err == nil {
				results[i] = msg
			}
		})
	}

	// Answer in reverse order.
	for i := n - 1; i >= 0; i-- {
		inbox.Append(notification(t))
		inbox.Append(response(t, int64(i)))
	}

	wg.Wait()

	for i, msg := range results {
		require.NotNil(t, msg, "request %d", i)
		require.True(t, msg.IsResponseTo(int64(i)))
	}

	require.Zero(t, correlator.Pending())
}

func TestCorrelator_CompactRespectsActiveWaits(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	inbox.Append(notification(t))
	inbox.Append(notification(t))

	pending := correlator.Begin()
	require.Equal(t, 2, pending.Offset())

	inbox.Append(response(t, 1))

	require.Equal(t, 2, correlator.Compact())
	require.Len(t, inbox.Snapshot(), 1)

	msg, err := pending.Wait(context.Background(), 1, time.Second)
	require.NoError(t, err)
	require.Equal(t, 2, msg.Seq)

	require.Equal(t, 1, correlator.Compact())
	require.Empty(t, inbox.Snapshot())
	require.Equal(t, 3, inbox.Len())
}

func TestPending_CancelIsIdempotent(t *testing.T) {
	correlator := NewCorrelator(slog.Default(), NewInbox(), 0)

	first := correlator.Begin()
	second := correlator.Begin()
	require.Equal(t, first.Offset(), second.Offset())
	require.Equal(t, 2, correlator.Pending())

	first.Cancel()
	first.Cancel()
	require.Equal(t, 1, correlator.Pending())

	second.Cancel()
	require.Zero(t, correlator.Pending())
}

func TestCorrelator_WaitFrom(t *testing.T) {
	inbox := NewInbox()
	correlator := NewCorrelator(slog.Default(), inbox, 10*time.Millisecond)

	inbox.Append(response(t, 1))
	inbox.Append(notification(t))
	inbox.Append(response(t, 1))

	msg, err := correlator.WaitFrom(context.Background(), 1, 0, time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, msg.Seq)

	msg, err = correlator.WaitFrom(context.Background(), 1, 1, time.Second)
	require.NoError(t, err)
	require.Equal(t, 2, msg.Seq)

	require.Zero(t, correlator.Pending())
}
