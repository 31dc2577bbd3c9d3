package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/mcpcheck/internal/config"
	"github.com/wagiedev/mcpcheck/internal/errors"
	"github.com/wagiedev/mcpcheck/internal/launch"
)

const (
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit to prevent unbounded memory usage.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

	// writeAbandonTimeout bounds how long a cancelled write waits for its
	// goroutine after stdin was closed underneath it.
	writeAbandonTimeout = 1 * time.Second
)

// Transport implements config.Transport by spawning the tool server as a
// child process.
type Transport struct {
	log     *slog.Logger
	options *config.Options
	path    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  io.ReadCloser
	scanner *bufio.Scanner

	stderrCallback func(string)
	stderrMu       sync.Mutex
	stderrBuffer   strings.Builder
	stderrDone     chan struct{}

	writeMu sync.Mutex // Serializes stdin writes; never held by Close

	mu          sync.Mutex // Protects stdin and the flags below
	closing     bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed bool       // Whether stdin was closed (CloseStdin, cancellation, Close)

	waitOnce sync.Once
	waitErr  error
	exited   chan struct{} // Closed once the process has been reaped
	exitCode int
}

// Compile-time verification that Transport implements the config.Transport interface.
var _ config.Transport = (*Transport)(nil)

// New creates a new subprocess transport with the given options.
//
// The logger is used for operation tracking and debugging. Executable
// discovery is deferred to Start(), which returns ServerNotFoundError if
// options.Command cannot be located.
func New(log *slog.Logger, options *config.Options) *Transport {
	if options == nil {
		options = &config.Options{}
	}

	return &Transport{
		log:            log.With("component", "stdio_transport"),
		options:        options,
		stderrCallback: options.Stderr,
		exited:         make(chan struct{}),
		exitCode:       -1,
	}
}

// Start spawns the tool server.
//
// This method discovers the server executable, builds its environment,
// sets its working directory, and starts it with stdin, stdout, and stderr
// pipes. Stderr is drained in the background from this point on.
//
// The process is not bound to ctx: it lives until Close is called or it
// exits on its own.
//
// Returns ServerNotFoundError if the executable cannot be located,
// or ConnectionError if the process fails to start.
func (t *Transport) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.log.Info("Starting tool server subprocess", "command", t.options.Command)

	cwd := t.options.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		cwd = wd
	}

	path, err := launch.NewDiscoverer(&launch.Config{
		Command: t.options.Command,
		Cwd:     cwd,
		Logger:  t.log,
	}).Discover()
	if err != nil {
		return fmt.Errorf("discover server: %w", err)
	}

	t.path = path

	t.log.Debug("Resolved tool server", "path", path, "args", t.options.Args, "cwd", cwd)

	//nolint:gosec // G204: launching a configured server executable is the point of this package
	cmd := exec.Command(path, t.options.Args...)
	cmd.Dir = cwd
	cmd.Env = launch.BuildEnvironment(t.options)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start tool server", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.mu.Unlock()

	t.stderrDone = make(chan struct{})

	go t.drainStderr()

	t.log.Info("Tool server subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// drainStderr buffers stderr for error reporting and forwards each line to
// the callback. It relies on process exit to close the pipe.
func (t *Transport) drainStderr() {
	defer close(t.stderrDone)

	scanner := bufio.NewScanner(t.stderr)
	for scanner.Scan() {
		line := scanner.Text()

		t.stderrMu.Lock()

		if t.stderrBuffer.Len() < maxStderrBufferSize {
			if t.stderrBuffer.Len() > 0 {
				t.stderrBuffer.WriteString("\n")
			}

			t.stderrBuffer.WriteString(line)
		}

		t.stderrMu.Unlock()

		if t.stderrCallback != nil {
			t.stderrCallback(line)
		}
	}

	// Don't fail - the process may simply have exited
	if err := scanner.Err(); err != nil {
		t.log.Debug("Stderr scanner error", "error", err)
	}
}

// ReadLine blocks until the server writes one line to stdout and returns it
// without the trailing newline (a trailing carriage return is kept; callers
// trim whitespace). It returns io.EOF once stdout is closed.
//
// ReadLine is not safe for concurrent use; exactly one reader loop owns it.
func (t *Transport) ReadLine() ([]byte, error) {
	if t.stdout == nil {
		return nil, errors.ErrTransportNotStarted
	}

	if t.scanner == nil {
		maxLine := t.options.MaxLineSize
		if maxLine <= 0 {
			maxLine = config.DefaultMaxLineSize
		}

		t.scanner = bufio.NewScanner(t.stdout)
		t.scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	}

	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			t.log.Error("Scanner error while reading server output", "error", err)

			return nil, fmt.Errorf("read stdout: %w", err)
		}

		return nil, io.EOF
	}

	// The scanner reuses its buffer; the caller keeps the line.
	line := t.scanner.Bytes()
	out := make([]byte, len(line))
	copy(out, line)

	return out, nil
}

// WriteLine writes payload to the server's stdin, terminated by a newline
// if it does not already end with one.
//
// This method is safe for concurrent use and respects context cancellation
// even during blocking writes: if ctx is cancelled mid-write, stdin is
// closed to unblock the writer and later calls report a closed transport.
// A blocked write does not hold up Close, CloseStdin, ExitCode or Wait.
//
// Returns TransportClosedError once the process has exited, Close or
// CloseStdin has been called, or the pipe is broken.
func (t *Transport) WriteLine(ctx context.Context, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	stdin := t.stdin
	notStarted := stdin == nil && !t.stdinClosed
	closed := t.stdinClosed || t.hasExited()
	t.mu.Unlock()

	if notStarted {
		return errors.ErrTransportNotStarted
	}

	if closed {
		return &errors.TransportClosedError{Op: "write"}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.log.Debug("Sending line to server", "data_len", len(payload))

	// Use explicit copy to avoid mutating caller's backing array if slice has spare capacity
	data := payload
	if !bytes.HasSuffix(payload, []byte{'\n'}) {
		data = make([]byte, len(payload)+1)
		copy(data, payload)
		data[len(payload)] = '\n'
	}

	done := make(chan error, 1)

	go func() {
		_, err := stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write line to server", "error", err)

			return &errors.TransportClosedError{Op: "write", Err: err}
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		// Close stdin to unblock the blocked Write
		t.mu.Lock()
		if !t.stdinClosed {
			_ = stdin.Close()
			t.stdinClosed = true
		}
		t.mu.Unlock()

		select {
		case <-done:
		case <-time.After(writeAbandonTimeout):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// hasExited reports whether the process has been reaped.
func (t *Transport) hasExited() bool {
	if t.exited == nil {
		return false
	}

	select {
	case <-t.exited:
		return true
	default:
		return false
	}
}

// CloseStdin closes the stdin pipe to signal end of input.
func (t *Transport) CloseStdin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin != nil && !t.stdinClosed {
		t.log.Debug("Closing stdin pipe")

		t.stdinClosed = true

		return t.stdin.Close()
	}

	return nil
}

// Wait blocks until the process has exited and its output pipes are drained.
//
// Wait must only be called after ReadLine has returned io.EOF, since it
// closes the pipes. It returns nil for a clean exit or an intentional
// shutdown, and ProcessError when the server exited on its own with a
// non-zero status. Subsequent calls return the same result.
func (t *Transport) Wait() error {
	if t.cmd == nil {
		return errors.ErrTransportNotStarted
	}

	t.waitOnce.Do(func() {
		<-t.stderrDone

		t.log.Debug("Waiting for tool server to exit")

		err := t.cmd.Wait()

		t.mu.Lock()
		t.exitCode = t.cmd.ProcessState.ExitCode()
		isClosing := t.closing
		t.mu.Unlock()

		close(t.exited)

		if err == nil {
			t.log.Info("Tool server exited successfully")

			return
		}

		if isClosing {
			t.log.Debug("Tool server terminated during shutdown", "error", err)

			return
		}

		exitCode := -1
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		stderrOutput := t.StderrOutput()

		t.log.Error("Tool server exited with error", "exit_code", exitCode, "stderr", stderrOutput)

		t.waitErr = &errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   stderrOutput,
			Err:      err,
		}
	})

	return t.waitErr
}

// Close terminates the server.
//
// It closes stdin, sends an interrupt, and kills the process if it has not
// been reaped within TerminateGrace. Close does not block for the grace
// period; Wait observes the exit. It's safe to call Close multiple times or
// on a process that already exited.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing {
		return nil
	}

	t.closing = true

	if t.stdin != nil && !t.stdinClosed {
		_ = t.stdin.Close()
	}

	t.stdinClosed = true

	if t.cmd == nil || t.cmd.Process == nil || t.hasExited() {
		return nil
	}

	proc := t.cmd.Process

	t.log.Debug("Terminating tool server", "pid", proc.Pid)

	if err := proc.Signal(os.Interrupt); err != nil {
		// Interrupt is unsupported on some platforms, or the process is gone
		t.log.Debug("Interrupt failed, killing tool server", "pid", proc.Pid, "error", err)

		if killErr := proc.Kill(); killErr != nil && !stderrors.Is(killErr, os.ErrProcessDone) {
			return fmt.Errorf("kill tool server (pid %d): %w", proc.Pid, killErr)
		}

		return nil
	}

	grace := t.options.TerminateGrace
	if grace <= 0 {
		grace = config.DefaultTerminateGrace
	}

	go func() {
		select {
		case <-t.exited:
		case <-time.After(grace):
			t.log.Warn("Tool server ignored interrupt, killing", "pid", proc.Pid, "grace", grace)

			_ = proc.Kill()
		}
	}()

	return nil
}

// StderrOutput returns everything the server wrote to stderr so far,
// capped at 10MB.
func (t *Transport) StderrOutput() string {
	t.stderrMu.Lock()
	defer t.stderrMu.Unlock()

	return strings.TrimSpace(t.stderrBuffer.String())
}

// ExitCode returns the exit code of the reaped process, or -1.
func (t *Transport) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.exitCode
}

// Path returns the resolved executable path after Start.
func (t *Transport) Path() string {
	return t.path
}
