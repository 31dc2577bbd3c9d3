package protocol

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/wagiedev/mcpcheck/internal/errors"
)

// LineReader is the read half of a transport.
type LineReader interface {
	// ReadLine blocks for one line and returns io.EOF at end of stream.
	ReadLine() ([]byte, error)
}

// RequestHandler is called by the Reader for every server-originated
// request after it has been appended to the Inbox. It runs on the Reader's
// goroutine and must not block.
type RequestHandler func(msg *Message)

// Reader continuously drains a LineReader into an Inbox so the server never
// blocks on a full output pipe.
type Reader struct {
	log       *slog.Logger
	src       LineReader
	inbox     *Inbox
	onRequest RequestHandler
}

// NewReader creates a reader. onRequest may be nil.
func NewReader(log *slog.Logger, src LineReader, inbox *Inbox, onRequest RequestHandler) *Reader {
	return &Reader{
		log:       log.With("component", "reader"),
		src:       src,
		inbox:     inbox,
		onRequest: onRequest,
	}
}

// Run reads until the stream ends. Blank lines are skipped; lines that fail
// to decode are logged and recorded on the Inbox without stopping the loop.
//
// Run returns nil at end of stream and the read error otherwise. Either way
// the Inbox is closed before Run returns, which releases pending waits.
// There is no cooperative cancellation: closing the underlying stream (by
// terminating the process) is what unblocks a pending read.
func (r *Reader) Run() (err error) {
	r.log.Debug("Reader loop started")

	received := 0

	defer func() {
		r.inbox.Close(err)
		r.log.Debug("Reader loop stopped", "messages", received, "error", err)
	}()

	for {
		line, readErr := r.src.ReadLine()
		if readErr != nil {
			if stderrors.Is(readErr, io.EOF) {
				return nil
			}

			// The transport owns reporting how the process exited.
			if _, exited := stderrors.AsType[*errors.ProcessError](readErr); exited {
				r.log.Debug("Server exited", "error", readErr)

				return readErr
			}

			r.log.Error("Failed to read from server", "error", readErr)

			return readErr
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		msg, decodeErr := Decode(line)
		if decodeErr != nil {
			r.log.Warn("Dropping malformed line from server", "error", decodeErr, "line", truncate(line, 200))
			r.inbox.RecordMalformed(line, decodeErr)

			continue
		}

		seq := r.inbox.Append(msg)
		received++

		r.log.Debug("Received message from server",
			"seq", seq,
			"kind", msg.Kind().String(),
			"method", msg.Method,
			"raw_id", string(msg.RawID),
		)

		if msg.Kind() == KindRequest && r.onRequest != nil {
			r.onRequest(msg)
		}
	}
}

// truncate shortens a line for logging.
func truncate(line []byte, n int) string {
	if len(line) <= n {
		return string(line)
	}

	return string(line[:n]) + "..."
}
