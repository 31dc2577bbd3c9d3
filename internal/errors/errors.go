package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HarnessError is the base interface for all harness errors.
type HarnessError interface {
	error
	IsHarnessError() bool
}

// Compile-time verification that all error types implement HarnessError.
var (
	_ HarnessError = (*ServerNotFoundError)(nil)
	_ HarnessError = (*ConnectionError)(nil)
	_ HarnessError = (*ProcessError)(nil)
	_ HarnessError = (*TransportClosedError)(nil)
	_ HarnessError = (*TimeoutError)(nil)
	_ HarnessError = (*DecodeError)(nil)
	_ HarnessError = (*ProtocolError)(nil)
	_ HarnessError = (*RPCError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientNotStarted indicates the client has not been started.
	ErrClientNotStarted = errors.New("client not started")

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.New("client already started")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with NewClient()")

	// ErrTransportNotStarted indicates the transport has no running process.
	ErrTransportNotStarted = errors.New("transport not started")

	// ErrTransportClosed indicates the server process can no longer be written
	// to or read from.
	ErrTransportClosed = errors.New("transport closed")

	// ErrRequestTimeout indicates no correlated response arrived in time.
	ErrRequestTimeout = errors.New("request timeout")
)

// ServerNotFoundError indicates the tool server executable was not found.
type ServerNotFoundError struct {
	SearchedPaths []string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("tool server not found in: %v", e.SearchedPaths)
}

// IsHarnessError implements HarnessError.
func (e *ServerNotFoundError) IsHarnessError() bool { return true }

// ConnectionError indicates the server process could not be started.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to start tool server: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsHarnessError implements HarnessError.
func (e *ConnectionError) IsHarnessError() bool { return true }

// ProcessError indicates the server process exited with an error.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool server failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("tool server failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsHarnessError implements HarnessError.
func (e *ProcessError) IsHarnessError() bool { return true }

// TransportClosedError indicates an operation hit a closed transport:
// a write after the process ended, or a wait whose output stream closed
// before the response arrived.
//
// It matches ErrTransportClosed under errors.Is.
type TransportClosedError struct {
	Op  string
	Err error
}

func (e *TransportClosedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport closed during %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("transport closed during %s", e.Op)
}

func (e *TransportClosedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransportClosed.
func (e *TransportClosedError) Is(target error) bool {
	return target == ErrTransportClosed
}

// IsHarnessError implements HarnessError.
func (e *TransportClosedError) IsHarnessError() bool { return true }

// TimeoutError indicates no response with the requested id arrived within
// the wait budget. It matches ErrRequestTimeout under errors.Is.
type TimeoutError struct {
	ID      int64
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("request %d (%s) timed out after %s", e.ID, e.Method, e.Timeout)
	}

	return fmt.Sprintf("request %d timed out after %s", e.ID, e.Timeout)
}

// Is reports whether target is ErrRequestTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}

// IsHarnessError implements HarnessError.
func (e *TimeoutError) IsHarnessError() bool { return true }

// DecodeError indicates a line or payload from the server was not valid JSON,
// or could not be decoded into the requested shape.
// This error preserves the original raw data that failed to parse.
type DecodeError struct {
	RawData string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode server output: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsHarnessError implements HarnessError.
func (e *DecodeError) IsHarnessError() bool { return true }

// ProtocolError indicates well-formed JSON that is not a valid JSON-RPC 2.0
// message.
type ProtocolError struct {
	Reason  string
	RawData string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

// IsHarnessError implements HarnessError.
func (e *ProtocolError) IsHarnessError() bool { return true }

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// IsHarnessError implements HarnessError.
func (e *RPCError) IsHarnessError() bool { return true }
