package mcpcheck

import "github.com/wagiedev/mcpcheck/internal/errors"

// Re-export error types from internal package

// ServerNotFoundError indicates the tool server executable was not found.
type ServerNotFoundError = errors.ServerNotFoundError

// ConnectionError indicates the tool server could not be started.
type ConnectionError = errors.ConnectionError

// ProcessError indicates the tool server exited with a non-zero status.
type ProcessError = errors.ProcessError

// TransportClosedError indicates the server's streams are gone.
type TransportClosedError = errors.TransportClosedError

// TimeoutError indicates no response with the request's id arrived in time.
type TimeoutError = errors.TimeoutError

// DecodeError indicates a line or result could not be parsed.
type DecodeError = errors.DecodeError

// ProtocolError indicates JSON that is not a well-formed JSON-RPC message.
type ProtocolError = errors.ProtocolError

// RPCError is a JSON-RPC error object returned by the server.
type RPCError = errors.RPCError

// HarnessError is the base interface for all harness errors.
type HarnessError = errors.HarnessError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotStarted indicates the client has not been started.
	ErrClientNotStarted = errors.ErrClientNotStarted

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.ErrClientAlreadyStarted

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotStarted indicates the transport has no running process.
	ErrTransportNotStarted = errors.ErrTransportNotStarted

	// ErrTransportClosed indicates the server can no longer be reached.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout
)
