package mcpcheck

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client is a JSON-RPC session with one tool server process.
//
// Lifecycle: Clients are single-use. After Close(), create a new client
// with NewClient().
//
// Example usage:
//
//	client := mcpcheck.NewClient()
//	defer client.Close(ctx)
//
//	err := client.Start(ctx,
//	    mcpcheck.WithCommand("./publish/server"),
//	    mcpcheck.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.CallTool(ctx, "echo", map[string]any{"text": "hi"}, 0)
type Client interface {
	// Start launches the server and the reader loop.
	// Must be called before any other methods.
	// Returns ServerNotFoundError if the executable is not found and
	// ConnectionError if it cannot be started.
	Start(ctx context.Context, opts ...Option) error

	// Call sends a request and waits for the response with the same id.
	// A zero timeout uses the configured request timeout.
	// A JSON-RPC error response is returned as a Response, not an error.
	Call(ctx context.Context, method string, params any, timeout time.Duration) (*Response, error)

	// CallResult is Call followed by decoding the result into out.
	// An error response is returned as RPCError.
	CallResult(ctx context.Context, method string, params any, timeout time.Duration, out any) error

	// Notify sends a notification without waiting for anything.
	Notify(ctx context.Context, method string, params any) error

	// Initialize performs the MCP handshake.
	Initialize(ctx context.Context) (*mcp.InitializeResult, error)

	// ServerInfo returns the handshake result, or nil before Initialize.
	ServerInfo() *mcp.InitializeResult

	// ListTools returns every tool the server advertises.
	ListTools(ctx context.Context) ([]*mcp.Tool, error)

	// CallTool invokes a tool and returns the raw response.
	CallTool(ctx context.Context, name string, arguments any, timeout time.Duration) (*Response, error)

	// Inbox returns every line received so far, for diagnostics.
	Inbox() *Inbox

	// StderrOutput returns what the server wrote to stderr.
	StderrOutput() string

	// ExitCode returns the server's exit code, or -1 while it is running.
	ExitCode() int

	// SessionID returns the ULID that tags this session's log lines.
	SessionID() string

	// Close terminates the server and releases resources.
	// After Close(), the client cannot be reused. Safe to call multiple times.
	Close(ctx context.Context) error
}

// NewClient creates a new client.
//
// Call Start() with options to launch a server:
//
//	client := mcpcheck.NewClient()
//	err := client.Start(ctx, mcpcheck.WithCommand("./publish/server"))
func NewClient() Client {
	return newClientImpl()
}
