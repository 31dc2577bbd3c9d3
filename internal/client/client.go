package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcpcheck/internal/config"
	"github.com/wagiedev/mcpcheck/internal/errors"
	"github.com/wagiedev/mcpcheck/internal/protocol"
	"github.com/wagiedev/mcpcheck/internal/subprocess"
)

const (
	// maxListPages bounds tools/list pagination against servers that keep
	// returning a cursor.
	maxListPages = 100

	// replyTimeout bounds the write of an answer to a server request.
	replyTimeout = 5 * time.Second

	// closeReaderTimeout is how long a self-close waits for the reader
	// beyond the terminate grace.
	closeReaderTimeout = 5 * time.Second
)

// Client is a JSON-RPC session with one tool server process.
type Client struct {
	log        *slog.Logger
	options    *config.Options
	transport  config.Transport
	inbox      *protocol.Inbox
	correlator *protocol.Correlator
	sessionID  string

	nextID atomic.Int64

	// Errgroup for the reader goroutine
	eg *errgroup.Group

	// In-flight answers to server requests
	replies sync.WaitGroup

	serverMu   sync.Mutex
	initResult *mcp.InitializeResult

	// Lifecycle management
	mu        sync.Mutex
	started   bool
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a client. Call Start to launch the server.
func New() *Client {
	return &Client{}
}

// Start launches the server and the reader goroutine.
//
// The server process is not bound to ctx; it runs until Close. ctx only
// bounds the launch and the optional startup delay. When ctx ends during
// the delay the client closes itself, stopping the server, and returns
// ctx.Err().
//
// Returns ServerNotFoundError if the executable cannot be located,
// ConnectionError if the process fails to start, ErrClientAlreadyStarted
// on a second call and ErrClientClosed after Close.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	if err := c.start(ctx, options); err != nil {
		return err
	}

	if delay := c.options.StartupDelay; delay > 0 {
		c.log.Debug("Waiting for server startup", "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.log.Debug("Startup cancelled, stopping server", "error", ctx.Err())

			// Close runs after ctx ended, so it gets a fresh bound.
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.options.TerminateGrace+closeReaderTimeout)
			defer cancel()

			_ = c.Close(closeCtx)

			return ctx.Err()
		}
	}

	return nil
}

// start launches the transport and reader under the lifecycle lock.
func (c *Client) start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.started {
		return errors.ErrClientAlreadyStarted
	}

	opts := options.WithDefaults()

	c.options = opts
	c.sessionID = ulid.Make().String()
	c.log = opts.Logger.With("component", "client", "session_id", c.sessionID)

	transport := opts.Transport
	if transport != nil {
		c.log.Debug("Using injected custom transport")
	} else {
		transport = subprocess.New(c.log, opts)
	}

	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = transport
	c.inbox = protocol.NewInbox()
	c.correlator = protocol.NewCorrelator(c.log, c.inbox, opts.PollInterval)

	reader := protocol.NewReader(c.log, processLines{transport}, c.inbox, c.handleServerRequest)

	c.eg = new(errgroup.Group)
	c.eg.Go(func() error {
		err := reader.Run()

		// Reap the process; after a clean end of stream this returns the
		// result processLines already saw.
		if waitErr := transport.Wait(); err == nil {
			err = waitErr
		}

		return err
	})

	c.started = true
	c.log.Info("Client started")

	return nil
}

// processLines reports how the process exited in place of a bare io.EOF,
// so that waits released by the end of stream carry the exit status.
type processLines struct {
	config.Transport
}

func (p processLines) ReadLine() ([]byte, error) {
	line, err := p.Transport.ReadLine()
	if stderrors.Is(err, io.EOF) {
		if waitErr := p.Transport.Wait(); waitErr != nil {
			return nil, waitErr
		}
	}

	return line, err
}

// checkStarted returns an error unless the client is ready for calls.
func (c *Client) checkStarted() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if !c.started {
		return errors.ErrClientNotStarted
	}

	return nil
}

// Call sends a request and waits for the response with the same id.
//
// A zero timeout uses Options.RequestTimeout. A JSON-RPC error response is
// returned as a Response with Error set, not as a Go error. Go errors are
// reserved for the exchange itself failing: TransportClosedError,
// TimeoutError, ProtocolError for unmarshalable params, or ctx.Err().
func (c *Client) Call(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*protocol.Response, error) {
	if err := c.checkStarted(); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = c.options.RequestTimeout
	}

	// The write and the wait share one budget.
	deadline := time.Now().Add(timeout)

	id := c.nextID.Add(1)

	data, err := json.Marshal(protocol.NewRequest(id, method, params))
	if err != nil {
		return nil, &errors.ProtocolError{Reason: fmt.Sprintf("marshal %s request: %v", method, err)}
	}

	// Register the wait before writing so an immediate response is seen.
	pending := c.correlator.Begin()

	c.log.Debug("Sending request", "request_id", id, "method", method, "offset", pending.Offset())

	if err := c.write(ctx, deadline, data); err != nil {
		pending.Cancel()

		if stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			c.log.Warn("Server did not accept request in time", "request_id", id, "method", method, "timeout", timeout)

			return nil, &errors.TimeoutError{ID: id, Method: method, Timeout: timeout}
		}

		return nil, fmt.Errorf("send %s request: %w", method, err)
	}

	msg, err := pending.Wait(ctx, id, time.Until(deadline))

	if c.options.CompactInbox {
		c.correlator.Compact()
	}

	if err != nil {
		if timeoutErr, ok := stderrors.AsType[*errors.TimeoutError](err); ok {
			timeoutErr.Method = method
			timeoutErr.Timeout = timeout
		}

		return nil, err
	}

	resp := msg.Response()

	c.log.Debug("Received response", "request_id", id, "method", method, "is_error", resp.IsError())

	return resp, nil
}

// CallResult is Call followed by decoding the result into out.
// An error response is returned as *errors.RPCError and a result that does
// not fit out as *errors.DecodeError.
func (c *Client) CallResult(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
	out any,
) error {
	resp, err := c.Call(ctx, method, params, timeout)
	if err != nil {
		return err
	}

	return resp.DecodeResult(out)
}

// Notify sends a notification. Nothing is awaited.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	if err := c.checkStarted(); err != nil {
		return err
	}

	data, err := json.Marshal(protocol.NewNotification(method, params))
	if err != nil {
		return &errors.ProtocolError{Reason: fmt.Sprintf("marshal %s notification: %v", method, err)}
	}

	c.log.Debug("Sending notification", "method", method)

	if err := c.write(ctx, time.Now().Add(c.options.RequestTimeout), data); err != nil {
		return fmt.Errorf("send %s notification: %w", method, err)
	}

	return nil
}

// write sends one line, giving up at deadline. A server that stops reading
// stdin would otherwise block the writer forever.
func (c *Client) write(ctx context.Context, deadline time.Time, data []byte) error {
	wctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	return c.transport.WriteLine(wctx, data)
}

// serverReply is the answer to a server-originated request. The id is
// echoed verbatim since servers may use string ids.
type serverReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *protocol.Error `json:"error,omitempty"`
}

// handleServerRequest answers server requests off the reader goroutine.
func (c *Client) handleServerRequest(msg *protocol.Message) {
	c.replies.Go(func() {
		reply := serverReply{JSONRPC: protocol.Version, ID: msg.RawID}

		switch msg.Method {
		case "ping":
			reply.Result = struct{}{}
		default:
			reply.Error = &protocol.Error{
				Code:    protocol.CodeMethodNotFound,
				Message: "method not found: " + msg.Method,
			}
		}

		data, err := json.Marshal(reply)
		if err != nil {
			c.log.Error("Failed to marshal reply to server request", "method", msg.Method, "error", err)

			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()

		if err := c.transport.WriteLine(ctx, data); err != nil {
			c.log.Debug("Failed to answer server request", "method", msg.Method, "error", err)

			return
		}

		c.log.Debug("Answered server request", "method", msg.Method, "raw_id", string(msg.RawID))
	})
}

// Initialize performs the MCP handshake: initialize, then the
// notifications/initialized notification.
func (c *Client) Initialize(ctx context.Context) (*mcp.InitializeResult, error) {
	if err := c.checkStarted(); err != nil {
		return nil, err
	}

	params := &mcp.InitializeParams{
		ProtocolVersion: c.options.ProtocolVersion,
		ClientInfo: &mcp.Implementation{
			Name:    c.options.ClientName,
			Version: c.options.ClientVersion,
		},
		Capabilities: &mcp.ClientCapabilities{},
	}

	var result mcp.InitializeResult
	if err := c.CallResult(ctx, "initialize", params, 0, &result); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	if err := c.Notify(ctx, "notifications/initialized", &mcp.InitializedParams{}); err != nil {
		return nil, err
	}

	c.serverMu.Lock()
	c.initResult = &result
	c.serverMu.Unlock()

	attrs := []any{"protocol_version", result.ProtocolVersion}
	if result.ServerInfo != nil {
		attrs = append(attrs, "server", result.ServerInfo.Name, "server_version", result.ServerInfo.Version)
	}

	c.log.Info("Server initialized", attrs...)

	return &result, nil
}

// ServerInfo returns the result of the last successful Initialize, or nil.
func (c *Client) ServerInfo() *mcp.InitializeResult {
	c.serverMu.Lock()
	defer c.serverMu.Unlock()

	return c.initResult
}

// ListTools returns every tool the server advertises, following
// pagination cursors.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	var (
		tools  []*mcp.Tool
		cursor string
	)

	for range maxListPages {
		var page mcp.ListToolsResult
		if err := c.CallResult(ctx, "tools/list", &mcp.ListToolsParams{Cursor: cursor}, 0, &page); err != nil {
			return nil, fmt.Errorf("list tools: %w", err)
		}

		tools = append(tools, page.Tools...)

		if page.NextCursor == "" || page.NextCursor == cursor {
			return tools, nil
		}

		cursor = page.NextCursor
	}

	c.log.Warn("Stopped following tools/list cursors", "pages", maxListPages, "tools", len(tools))

	return tools, nil
}

// CallTool invokes a tool. The raw response is returned so callers can
// tell a JSON-RPC error from a tool result flagged isError.
func (c *Client) CallTool(
	ctx context.Context,
	name string,
	arguments any,
	timeout time.Duration,
) (*protocol.Response, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}

	return c.Call(ctx, "tools/call", &mcp.CallToolParams{Name: name, Arguments: arguments}, timeout)
}

// Inbox returns the session's inbox for diagnostics, or nil before Start.
func (c *Client) Inbox() *protocol.Inbox {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inbox
}

// StderrOutput returns what the server wrote to stderr so far.
func (c *Client) StderrOutput() string {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()

	if transport == nil {
		return ""
	}

	return transport.StderrOutput()
}

// ExitCode returns the server's exit code, or -1 while it is running.
func (c *Client) ExitCode() int {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()

	if transport == nil {
		return -1
	}

	return transport.ExitCode()
}

// SessionID returns the ULID identifying this session in logs, or "" before
// Start.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sessionID
}

// Close terminates the server and waits for the reader to stop.
//
// It returns the first error that was not caused by the shutdown itself,
// such as a ProcessError when the server had already crashed. ctx bounds
// the wait for the reader. The client cannot be reused after Close; it is
// safe to call Close multiple times.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasStarted := c.started
		c.mu.Unlock()

		if !wasStarted {
			return
		}

		c.log.Info("Closing client")

		closeErr := c.transport.Close()

		done := make(chan error, 1)

		go func() {
			done <- c.eg.Wait()
		}()

		select {
		case err := <-done:
			if closeErr == nil {
				closeErr = err
			}

			// The reader has stopped, so no new replies can be started.
			c.replies.Wait()
		case <-ctx.Done():
			c.log.Warn("Gave up waiting for reader to stop", "error", ctx.Err())

			if closeErr == nil {
				closeErr = ctx.Err()
			}
		}

		c.closeErr = closeErr

		c.log.Info("Client closed", "exit_code", c.transport.ExitCode())
	})

	return c.closeErr
}
