package mcpcheck_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcpcheck"
	"github.com/wagiedev/mcpcheck/internal/testserver"
)

func TestWithClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mcpcheck.WithClient(ctx, func(_ mcpcheck.Client) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithClient_HandshakeDoneBeforeCallback(t *testing.T) {
	ctx := context.Background()

	var echoed string

	err := mcpcheck.WithClient(ctx, func(c mcpcheck.Client) error {
		require.NotNil(t, c.ServerInfo())
		require.Equal(t, testserver.SDKServerName, c.ServerInfo().ServerInfo.Name)

		resp, err := c.CallTool(ctx, "echo", map[string]any{"text": "ping"}, 0)
		if err != nil {
			return err
		}

		echoed = string(resp.Result)

		return nil
	}, serverOptions(testserver.ModeSDK)...)
	require.NoError(t, err)
	require.Contains(t, echoed, "ping")
}

func TestWithClient_CallbackError(t *testing.T) {
	sentinel := errors.New("callback failed")

	err := mcpcheck.WithClient(context.Background(), func(mcpcheck.Client) error {
		return sentinel
	}, serverOptions(testserver.ModeScripted)...)
	require.ErrorIs(t, err, sentinel)
}

func TestWithClient_StartFailure(t *testing.T) {
	err := mcpcheck.WithClient(context.Background(), func(mcpcheck.Client) error {
		t.Error("callback should not be called when the server cannot start")

		return nil
	}, mcpcheck.WithCommand("mcpcheck-server-that-does-not-exist"), mcpcheck.WithCwd(t.TempDir()))

	require.ErrorContains(t, err, "failed to start client")

	_, ok := errors.AsType[*mcpcheck.ServerNotFoundError](err)
	require.True(t, ok, "got %v", err)
}
