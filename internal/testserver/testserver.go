package testserver

import (
	"fmt"
	"os"
	"time"
)

// EnvMode selects the fake server behavior in a re-executed test binary.
const EnvMode = "MCPCHECK_TESTSERVER_MODE"

// Server modes.
const (
	// ModeSDK is a well-behaved MCP server built on the go-sdk.
	ModeSDK = "sdk"
	// ModeScripted answers initialize, tools/list and tools/call by itself.
	ModeScripted = "scripted"
	// ModeNoisy precedes every response with a notification, a response to
	// an id nobody asked for, and a server request reusing the caller's id.
	ModeNoisy = "noisy"
	// ModeSilent reads requests and never answers.
	ModeSilent = "silent"
	// ModeGarbage precedes every response with blank, non-JSON and
	// non-JSON-RPC lines.
	ModeGarbage = "garbage"
	// ModeCrash answers the handshake and exits with status 3 on the first
	// tools/call.
	ModeCrash = "crash"
	// ModeDeaf never reads stdin, so writes block once the pipe fills. It
	// runs until it is signalled.
	ModeDeaf = "deaf"
)

// CrashExitCode is the status ModeCrash exits with.
const CrashExitCode = 3

// ReadyBanner is written to stderr by scripted servers at startup.
const ReadyBanner = "scripted server ready"

// RunIfRequested turns the current process into a fake server when EnvMode
// is set, and exits when the server stops. It returns immediately otherwise.
func RunIfRequested() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}

	var err error

	switch mode {
	case ModeSDK:
		err = runSDKServer()
	case ModeDeaf:
		fmt.Fprintln(os.Stderr, ReadyBanner)
		time.Sleep(time.Hour)
	default:
		err = runScripted(mode, os.Stdin, os.Stdout, os.Stderr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "testserver: %v\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}

// Command returns the executable and environment that start the current
// test binary as a fake server in the given mode.
func Command(mode string) (string, map[string]string) {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	return exe, map[string]string{EnvMode: mode}
}
