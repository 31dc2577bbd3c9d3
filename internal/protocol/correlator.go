package protocol

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/mcpcheck/internal/errors"
)

// Correlator matches responses in an Inbox to the requests that caused them.
type Correlator struct {
	log          *slog.Logger
	inbox        *Inbox
	pollInterval time.Duration

	// Start offsets of pending waits, with multiplicity.
	mu     sync.Mutex
	active map[int]int
}

// NewCorrelator creates a correlator polling inbox every pollInterval.
func NewCorrelator(log *slog.Logger, inbox *Inbox, pollInterval time.Duration) *Correlator {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}

	return &Correlator{
		log:          log.With("component", "correlator"),
		inbox:        inbox,
		pollInterval: pollInterval,
		active:       make(map[int]int, 4),
	}
}

// Pending is an outstanding wait registered before its request is written,
// so that a response arriving immediately after the write is still seen.
type Pending struct {
	c       *Correlator
	start   int
	release sync.Once
}

// Begin records the current inbox length as the start offset of a new wait.
// Call Wait or Cancel exactly once on the result.
func (c *Correlator) Begin() *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.inbox.Len()
	c.active[start]++

	return &Pending{c: c, start: start}
}

// Offset is the inbox offset the wait scans from.
func (p *Pending) Offset() int {
	return p.start
}

// Cancel releases the wait without waiting, e.g. when the request could not
// be written.
func (p *Pending) Cancel() {
	p.release.Do(func() {
		p.c.mu.Lock()
		defer p.c.mu.Unlock()

		if p.c.active[p.start]--; p.c.active[p.start] <= 0 {
			delete(p.c.active, p.start)
		}
	})
}

// Wait blocks until the response to id appears in the inbox at or after
// the start offset, and returns the earliest such message.
//
// Between scans it sleeps until the inbox changes, the poll interval
// elapses, the deadline passes, ctx is done, or the stream ends. Each scan
// resumes where the last one stopped; nothing is removed from the inbox.
//
// Errors: *errors.TimeoutError when the budget is exhausted,
// *errors.TransportClosedError when the stream ended without the response,
// and ctx.Err() on cancellation.
func (p *Pending) Wait(ctx context.Context, id int64, timeout time.Duration) (*Message, error) {
	defer p.Cancel()

	c := p.c
	match := func(m *Message) bool { return m.IsResponseTo(id) }

	if timeout <= 0 {
		if msg, _ := c.inbox.Scan(p.start, match); msg != nil {
			return msg, nil
		}

		return nil, &errors.TimeoutError{ID: id, Timeout: timeout}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	next := p.start

	for {
		// Observe closure and take the change signal before scanning, so an
		// entry appended just before either is never missed.
		closed := c.inbox.Closed()
		changed := c.inbox.Changed()

		msg, resume := c.inbox.Scan(next, match)
		if msg != nil {
			c.log.Debug("Correlated response", "request_id", id, "seq", msg.Seq)

			return msg, nil
		}

		next = resume

		if closed {
			c.log.Debug("Stream ended before response", "request_id", id)

			return nil, &errors.TransportClosedError{Op: "wait", Err: c.inbox.Err()}
		}

		select {
		case <-changed:
		case <-ticker.C:
		case <-c.inbox.Done():
		case <-ctx.Done():
			c.log.Debug("Wait cancelled", "request_id", id)

			return nil, ctx.Err()
		case <-deadline.C:
			if msg, _ := c.inbox.Scan(next, match); msg != nil {
				return msg, nil
			}

			c.log.Warn("Request timed out", "request_id", id, "timeout", timeout)

			return nil, &errors.TimeoutError{ID: id, Timeout: timeout}
		}
	}
}

// WaitFor registers a wait at the current inbox length and blocks on it.
// Prefer Begin when the request has not been written yet.
func (c *Correlator) WaitFor(ctx context.Context, id int64, timeout time.Duration) (*Message, error) {
	return c.Begin().Wait(ctx, id, timeout)
}

// WaitFrom blocks for the response to id at or after offset. Offsets below
// the inbox's compaction point scan from the first retained entry.
func (c *Correlator) WaitFrom(ctx context.Context, id int64, offset int, timeout time.Duration) (*Message, error) {
	c.mu.Lock()
	c.active[offset]++
	c.mu.Unlock()

	p := &Pending{c: c, start: offset}

	return p.Wait(ctx, id, timeout)
}

// Pending returns the number of outstanding waits.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, count := range c.active {
		n += count
	}

	return n
}

// Compact drops inbox entries that no outstanding wait can still need:
// everything below the lowest active start offset, or everything when no
// wait is active. It returns the number of entries dropped.
func (c *Correlator) Compact() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	watermark := c.inbox.Len()
	for start := range c.active {
		watermark = min(watermark, start)
	}

	dropped := c.inbox.CompactBefore(watermark)
	if dropped > 0 {
		c.log.Debug("Compacted inbox", "dropped", dropped, "watermark", watermark)
	}

	return dropped
}
