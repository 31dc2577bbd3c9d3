// Package config provides configuration types for the mcpcheck harness.
package config

import "context"

// Transport defines the byte-level boundary to the tool server's standard
// streams. Implement this to provide custom transports for testing,
// mocking, or alternative process launchers.
//
// The default implementation is subprocess.Transport which spawns a child
// process. Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start spawns the server and prepares its streams.
	// It is called exactly once, before any other method.
	Start(ctx context.Context) error

	// WriteLine writes payload followed by a newline.
	// The payload must not contain a newline of its own.
	// This method must be safe for concurrent use.
	WriteLine(ctx context.Context, payload []byte) error

	// ReadLine blocks until one newline-terminated line is available and
	// returns it without the terminator. It returns io.EOF when the
	// server's output stream is closed. Only one goroutine calls ReadLine.
	ReadLine() ([]byte, error)

	// CloseStdin signals that no more input will be sent.
	CloseStdin() error

	// Wait blocks until the server has exited and its streams are drained.
	Wait() error

	// Close terminates the server and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// StderrOutput returns the server's buffered standard error output.
	StderrOutput() string

	// ExitCode returns the server's exit code, or -1 while it is running.
	ExitCode() int
}
