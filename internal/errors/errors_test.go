package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerNotFoundError(t *testing.T) {
	err := &ServerNotFoundError{
		SearchedPaths: []string{"/usr/bin/server", "$PATH"},
	}

	require.Equal(t, "tool server not found in: [/usr/bin/server $PATH]", err.Error())
	require.True(t, err.IsHarnessError())
}

func TestConnectionError(t *testing.T) {
	root := errors.New("fork failed")
	err := &ConnectionError{Err: root}

	require.Equal(t, "failed to start tool server: fork failed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsHarnessError())
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ProcessError{
		ExitCode: 9,
		Stderr:   "ignored when Err is set",
		Err:      root,
	}

	require.Equal(t, "tool server failed (exit 9): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{
		ExitCode: 2,
		Stderr:   "workspace not found",
	}

	require.Equal(t, "tool server failed (exit 2): workspace not found", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestTransportClosedError_MatchesSentinel(t *testing.T) {
	root := errors.New("broken pipe")
	err := fmt.Errorf("send request: %w", &TransportClosedError{Op: "write", Err: root})

	require.ErrorIs(t, err, ErrTransportClosed)
	require.ErrorIs(t, err, root)
	require.EqualError(t, err, "send request: transport closed during write: broken pipe")

	bare := &TransportClosedError{Op: "wait"}
	require.Equal(t, "transport closed during wait", bare.Error())
	require.NotErrorIs(t, bare, ErrRequestTimeout)
}

func TestTimeoutError_MatchesSentinel(t *testing.T) {
	err := &TimeoutError{ID: 5, Method: "tools/call", Timeout: 2 * time.Second}

	require.Equal(t, "request 5 (tools/call) timed out after 2s", err.Error())
	require.ErrorIs(t, err, ErrRequestTimeout)
	require.NotErrorIs(t, err, ErrTransportClosed)

	typed, ok := errors.AsType[*TimeoutError](fmt.Errorf("call: %w", err))
	require.True(t, ok)
	require.Equal(t, int64(5), typed.ID)

	noMethod := &TimeoutError{ID: 1, Timeout: time.Second}
	require.Equal(t, "request 1 timed out after 1s", noMethod.Error())
}

func TestDecodeError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &DecodeError{RawData: `{"id":`, Err: root}

	require.Equal(t, "failed to decode server output: unexpected end of JSON input", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsHarnessError())
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Reason: "missing method", RawData: `{"jsonrpc":"2.0"}`}

	require.Equal(t, "protocol violation: missing method", err.Error())
	require.True(t, err.IsHarnessError())
}

func TestRPCError(t *testing.T) {
	err := &RPCError{Code: -32602, Message: "unknown tool", Data: json.RawMessage(`{"name":"X"}`)}

	require.Equal(t, "server error -32602: unknown tool", err.Error())
	require.True(t, err.IsHarnessError())
}
