//go:build integration

package integration

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wagiedev/mcpcheck"
)

// Environment read by these tests.
const (
	// envServer names the tool server executable under test.
	envServer = "MCPCHECK_SERVER"
	// envServerArgs holds space-separated server arguments.
	envServerArgs = "MCPCHECK_SERVER_ARGS"
	// envCases optionally names a case table to run end to end.
	envCases = "MCPCHECK_CASES"
)

// serverOptions returns options for the server named by MCPCHECK_SERVER and
// skips the test when it is unset.
func serverOptions(t *testing.T, extra ...mcpcheck.Option) []mcpcheck.Option {
	t.Helper()

	server := os.Getenv(envServer)
	if server == "" {
		t.Skipf("%s not set", envServer)
	}

	opts := []mcpcheck.Option{
		mcpcheck.WithCommand(server),
		mcpcheck.WithLogger(slog.Default()),
		mcpcheck.WithStartupDelay(2 * time.Second),
		mcpcheck.WithRequestTimeout(30 * time.Second),
	}

	if args := strings.Fields(os.Getenv(envServerArgs)); len(args) > 0 {
		opts = append(opts, mcpcheck.WithArgs(args...))
	}

	return append(opts, extra...)
}

// skipIfServerNotFound skips the test if the error indicates the server
// executable is missing.
func skipIfServerNotFound(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*mcpcheck.ServerNotFoundError](err); ok {
		t.Skipf("tool server not found: %v", err)
	}
}
