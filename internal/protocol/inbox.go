package protocol

import (
	"sync"
	"time"
)

// Malformed records a line the Reader could not decode.
type Malformed struct {
	Line       string
	Err        error
	ReceivedAt time.Time
}

// Inbox is the append-only log of every message received from the server.
//
// The Reader is its sole writer; any number of waits scan it. Offsets are
// absolute: compaction drops a prefix but never renumbers what remains.
// The lock is held only for the duration of an append or a scan.
type Inbox struct {
	mu        sync.Mutex
	base      int // Absolute offset of entries[0]
	entries   []*Message
	malformed []Malformed
	changed   chan struct{} // Closed and replaced on every append
	done      chan struct{} // Closed when the stream ends
	closed    bool
	closeErr  error
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{
		entries: make([]*Message, 0, 64),
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Append stores msg, assigns its sequence number, wakes waiters, and
// returns the sequence number. Appending after Close is ignored and
// returns -1.
func (b *Inbox) Append(msg *Message) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return -1
	}

	msg.Seq = b.base + len(b.entries)
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	b.entries = append(b.entries, msg)

	close(b.changed)
	b.changed = make(chan struct{})

	return msg.Seq
}

// RecordMalformed keeps an undecodable line for diagnostics.
func (b *Inbox) RecordMalformed(line []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.malformed = append(b.malformed, Malformed{
		Line:       string(line),
		Err:        err,
		ReceivedAt: time.Now(),
	})
}

// Len returns the absolute length of the inbox: the offset the next
// message will be stored at.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.base + len(b.entries)
}

// Scan looks for the first message at or after offset from that satisfies
// match. It returns the match (or nil) and the offset to resume scanning
// at: just past the match, or the current length when nothing matched.
func (b *Inbox) Scan(from int, match func(*Message) bool) (*Message, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from = max(from, b.base)

	for i := from - b.base; i < len(b.entries); i++ {
		if msg := b.entries[i]; match(msg) {
			return msg, msg.Seq + 1
		}
	}

	return nil, b.base + len(b.entries)
}

// Changed returns a channel that is closed by the next Append or by Close.
// Take it before scanning so no append is missed.
func (b *Inbox) Changed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.changed
}

// Close marks the end of the server's output. err is the reason the stream
// ended, or nil at a clean end of stream. Subsequent calls are no-ops.
func (b *Inbox) Close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	b.closeErr = err

	close(b.changed)
	close(b.done)
}

// Done returns a channel that is closed once the stream has ended.
func (b *Inbox) Done() <-chan struct{} {
	return b.done
}

// Closed reports whether the stream has ended.
func (b *Inbox) Closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Err returns the error the stream ended with, if any.
func (b *Inbox) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closeErr
}

// Snapshot returns the retained messages in arrival order.
// The messages themselves are shared and must not be modified.
func (b *Inbox) Snapshot() []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Message, len(b.entries))
	copy(out, b.entries)

	return out
}

// Malformed returns every line that failed to decode.
func (b *Inbox) Malformed() []Malformed {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Malformed, len(b.malformed))
	copy(out, b.malformed)

	return out
}

// CompactBefore drops retained messages with offsets below offset and
// returns how many were dropped. Offsets of the remaining messages are
// unchanged.
func (b *Inbox) CompactBefore(offset int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(offset-b.base, len(b.entries))
	if n <= 0 {
		return 0
	}

	// Copy so the dropped prefix can be collected.
	remaining := make([]*Message, len(b.entries)-n, max(cap(b.entries)-n, 64))
	copy(remaining, b.entries[n:])

	b.entries = remaining
	b.base += n

	return n
}
