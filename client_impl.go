package mcpcheck

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpcheck/internal/client"
)

// clientWrapper adapts the internal client to the public interface.
type clientWrapper struct {
	impl *client.Client
}

var _ Client = (*clientWrapper)(nil)

func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

func (c *clientWrapper) Call(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*Response, error) {
	return c.impl.Call(ctx, method, params, timeout)
}

func (c *clientWrapper) CallResult(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
	out any,
) error {
	return c.impl.CallResult(ctx, method, params, timeout, out)
}

func (c *clientWrapper) Notify(ctx context.Context, method string, params any) error {
	return c.impl.Notify(ctx, method, params)
}

func (c *clientWrapper) Initialize(ctx context.Context) (*mcp.InitializeResult, error) {
	return c.impl.Initialize(ctx)
}

func (c *clientWrapper) ServerInfo() *mcp.InitializeResult {
	return c.impl.ServerInfo()
}

func (c *clientWrapper) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	return c.impl.ListTools(ctx)
}

func (c *clientWrapper) CallTool(
	ctx context.Context,
	name string,
	arguments any,
	timeout time.Duration,
) (*Response, error) {
	return c.impl.CallTool(ctx, name, arguments, timeout)
}

func (c *clientWrapper) Inbox() *Inbox {
	return c.impl.Inbox()
}

func (c *clientWrapper) StderrOutput() string {
	return c.impl.StderrOutput()
}

func (c *clientWrapper) ExitCode() int {
	return c.impl.ExitCode()
}

func (c *clientWrapper) SessionID() string {
	return c.impl.SessionID()
}

func (c *clientWrapper) Close(ctx context.Context) error {
	return c.impl.Close(ctx)
}
