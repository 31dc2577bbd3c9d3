package config

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Default values applied by Options.WithDefaults.
const (
	// DefaultRequestTimeout bounds a single request/response exchange.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultPollInterval is how often a pending wait rescans the inbox.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultTerminateGrace is how long Close waits after interrupting the
	// server before killing it.
	DefaultTerminateGrace = 5 * time.Second

	// DefaultMaxLineSize is the largest single line accepted from the server.
	DefaultMaxLineSize = 16 * 1024 * 1024

	// DefaultProtocolVersion is the MCP protocol version sent in initialize.
	DefaultProtocolVersion = "2024-11-05"

	// DefaultClientName identifies the harness in the initialize handshake.
	DefaultClientName = "mcpcheck"

	// DefaultClientVersion is sent alongside DefaultClientName.
	DefaultClientVersion = "1.0"

	// RequestTimeoutEnv overrides DefaultRequestTimeout when set to a Go duration.
	RequestTimeoutEnv = "MCPCHECK_REQUEST_TIMEOUT"
)

// Options configures the tool server process and the JSON-RPC client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Command is the tool server executable. A bare name is searched in
	// PATH and in the working directory's publish/ and bin/ folders.
	Command string

	// Args are passed to the server executable.
	Args []string

	// Cwd sets the working directory for the server process.
	// If empty, the current working directory is used.
	Cwd string

	// Env provides additional environment variables for the server process.
	Env map[string]string

	// Stderr is a callback invoked for each line the server writes to stderr.
	Stderr func(string)

	// RequestTimeout bounds each call when the caller passes a zero timeout.
	RequestTimeout time.Duration

	// PollInterval is the interval at which a pending wait rescans the inbox.
	PollInterval time.Duration

	// StartupDelay is slept after the process starts, for servers that drop
	// input received before they finish booting.
	StartupDelay time.Duration

	// TerminateGrace is how long Close waits between interrupting and
	// killing the server.
	TerminateGrace time.Duration

	// MaxLineSize is the largest single line accepted from the server.
	MaxLineSize int

	// ProtocolVersion is the MCP protocol version sent in initialize.
	ProtocolVersion string

	// ClientName and ClientVersion are sent as clientInfo in initialize.
	ClientName    string
	ClientVersion string

	// CompactInbox drops inbox entries that no pending wait can still need
	// after every call. Leave it off to keep the full session for diagnostics.
	CompactInbox bool

	// Transport allows injecting a custom transport implementation.
	// If nil, a subprocess transport is created automatically.
	Transport Transport `json:"-"`
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
// A nil receiver yields a fully defaulted Options.
func (o *Options) WithDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}

	if out.Logger == nil {
		out.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout

		if v := os.Getenv(RequestTimeoutEnv); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				out.RequestTimeout = d
			}
		}
	}

	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}

	if out.TerminateGrace <= 0 {
		out.TerminateGrace = DefaultTerminateGrace
	}

	if out.MaxLineSize <= 0 {
		out.MaxLineSize = DefaultMaxLineSize
	}

	if out.ProtocolVersion == "" {
		out.ProtocolVersion = DefaultProtocolVersion
	}

	if out.ClientName == "" {
		out.ClientName = DefaultClientName
	}

	if out.ClientVersion == "" {
		out.ClientVersion = DefaultClientVersion
	}

	return &out
}
