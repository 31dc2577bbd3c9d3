package protocol

import (
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// mustDecode decodes a line that is known to be valid.
func mustDecode(t testing.TB, line string) *Message {
	t.Helper()

	msg, err := Decode([]byte(line))
	require.NoError(t, err)

	return msg
}

func response(t testing.TB, id int64) *Message {
	return mustDecode(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{"id":%d}}`, id, id))
}

func notification(t testing.TB) *Message {
	return mustDecode(t, `{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}`)
}

func TestInbox_AppendAssignsOffsets(t *testing.T) {
	inbox := NewInbox()
	require.Equal(t, 0, inbox.Len())

	require.Equal(t, 0, inbox.Append(notification(t)))
	require.Equal(t, 1, inbox.Append(response(t, 1)))
	require.Equal(t, 2, inbox.Len())

	snapshot := inbox.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, 0, snapshot[0].Seq)
	require.Equal(t, 1, snapshot[1].Seq)
	require.False(t, snapshot[1].ReceivedAt.IsZero())
}

func TestInbox_ScanResumesAfterMatch(t *testing.T) {
	inbox := NewInbox()
	inbox.Append(response(t, 1))
	inbox.Append(notification(t))
	inbox.Append(response(t, 2))
	inbox.Append(response(t, 1))

	isOne := func(m *Message) bool { return m.IsResponseTo(1) }

	msg, resume := inbox.Scan(0, isOne)
	require.NotNil(t, msg)
	require.Equal(t, 0, msg.Seq)
	require.Equal(t, 1, resume)

	msg, resume = inbox.Scan(resume, isOne)
	require.NotNil(t, msg)
	require.Equal(t, 3, msg.Seq)
	require.Equal(t, 4, resume)

	msg, resume = inbox.Scan(resume, isOne)
	require.Nil(t, msg)
	require.Equal(t, 4, resume)
}

func TestInbox_ScanPastEnd(t *testing.T) {
	inbox := NewInbox()
	inbox.Append(response(t, 1))

	msg, resume := inbox.Scan(10, func(*Message) bool { return true })
	require.Nil(t, msg)
	require.Equal(t, 1, resume)
}

func TestInbox_ChangedClosesOnAppend(t *testing.T) {
	inbox := NewInbox()
	changed := inbox.Changed()

	select {
	case <-changed:
		t.Fatal("changed closed before any append")
	default:
	}

	inbox.Append(notification(t))

	select {
	case <-changed:
	default:
		t.Fatal("changed not closed by append")
	}

	select {
	case <-inbox.Changed():
		t.Fatal("a fresh change signal should be open")
	default:
	}
}

func TestInbox_Close(t *testing.T) {
	inbox := NewInbox()
	changed := inbox.Changed()
	cause := stderrors.New("pipe broken")

	require.False(t, inbox.Closed())

	inbox.Close(cause)
	inbox.Close(nil)

	require.True(t, inbox.Closed())
	require.ErrorIs(t, inbox.Err(), cause)

	<-changed
	<-inbox.Done()

	require.Equal(t, -1, inbox.Append(notification(t)))
	require.Equal(t, 0, inbox.Len())
}

func TestInbox_RecordMalformed(t *testing.T) {
	inbox := NewInbox()
	cause := stderrors.New("bad line")

	inbox.RecordMalformed([]byte("not json"), cause)

	malformed := inbox.Malformed()
	require.Len(t, malformed, 1)
	require.Equal(t, "not json", malformed[0].Line)
	require.ErrorIs(t, malformed[0].Err, cause)
	require.Equal(t, 0, inbox.Len())
}

func TestInbox_CompactKeepsAbsoluteOffsets(t *testing.T) {
	inbox := NewInbox()
	for i := range 5 {
		inbox.Append(response(t, int64(i)))
	}

	require.Equal(t, 3, inbox.CompactBefore(3))
	require.Equal(t, 5, inbox.Len())
	require.Len(t, inbox.Snapshot(), 2)

	// Scanning from a dropped offset starts at the first retained entry.
	msg, _ := inbox.Scan(0, func(*Message) bool { return true })
	require.NotNil(t, msg)
	require.Equal(t, 3, msg.Seq)

	require.Equal(t, 5, inbox.Append(notification(t)))

	require.Zero(t, inbox.CompactBefore(2))
	require.Equal(t, 3, inbox.CompactBefore(100))
	require.Empty(t, inbox.Snapshot())
	require.Equal(t, 6, inbox.Len())
}

func TestInbox_ConcurrentAppendAndScan(t *testing.T) {
	inbox := NewInbox()

	const n = 200

	var wg sync.WaitGroup

	wg.Go(func() {
		for i := range n {
			inbox.Append(response(t, int64(i)))
		}
	})

	for range 4 {
		wg.Go(func() {
			next := 0
			for next < n {
				_, next = inbox.Scan(next, func(*Message) bool { return false })
			}
		})
	}

	wg.Wait()

	require.Equal(t, n, inbox.Len())
}
