package mcpcheck

import (
	"log/slog"
	"maps"
	"time"

	"github.com/wagiedev/mcpcheck/internal/config"
)

// Options configures the tool server process and the JSON-RPC client.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Server Process =====

// WithCommand sets the tool server executable.
// A bare name is searched in PATH and in the working directory's publish/
// and bin/ folders.
func WithCommand(command string) Option {
	return func(o *Options) {
		o.Command = command
	}
}

// WithArgs sets the arguments passed to the server executable.
func WithArgs(args ...string) Option {
	return func(o *Options) {
		o.Args = args
	}
}

// WithCwd sets the working directory for the server process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithEnv adds environment variables for the server process.
// Repeated calls merge; later values win.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Env, env)
	}
}

// WithStderr sets a callback invoked for each line the server writes to
// stderr.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithStartupDelay sleeps after the server starts, for servers that drop
// input received while they boot.
func WithStartupDelay(d time.Duration) Option {
	return func(o *Options) {
		o.StartupDelay = d
	}
}

// WithTerminateGrace sets how long Close waits between interrupting and
// killing the server.
func WithTerminateGrace(d time.Duration) Option {
	return func(o *Options) {
		o.TerminateGrace = d
	}
}

// WithMaxLineSize sets the largest single line accepted from the server.
func WithMaxLineSize(n int) Option {
	return func(o *Options) {
		o.MaxLineSize = n
	}
}

// WithTransport injects a custom transport implementation.
// Command, Args, Cwd and Env are ignored when a transport is set.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}

// ===== Client =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRequestTimeout bounds calls made with a zero timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}

// WithPollInterval sets how often a pending wait rescans the inbox.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = d
	}
}

// WithClientInfo sets the clientInfo sent in the initialize handshake.
func WithClientInfo(name, version string) Option {
	return func(o *Options) {
		o.ClientName = name
		o.ClientVersion = version
	}
}

// WithProtocolVersion sets the MCP protocol version sent in initialize.
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithCompactInbox drops inbox entries no pending wait can still need after
// every call. Long sessions stay bounded at the cost of diagnostics.
func WithCompactInbox(compact bool) Option {
	return func(o *Options) {
		o.CompactInbox = compact
	}
}
