// Command mcpcheck runs a YAML case table against an MCP tool server and
// writes a JSON or YAML report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wagiedev/mcpcheck"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitAborted = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, " ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)

	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mcpcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var serverArgs stringList

	cases := fs.String("cases", "", "YAML case table (required)")
	reportPath := fs.String("report", "test-results.json", "report file; .yaml or .yml writes YAML")
	server := fs.String("server", "", "tool server executable, overrides the table")
	fs.Var(&serverArgs, "arg", "argument for the tool server (repeatable), overrides the table")
	cwd := fs.String("cwd", "", "working directory for the tool server, overrides the table")
	session := fs.String("session", "", `session mode: "shared" or "per-case", overrides the table`)
	timeout := fs.Duration("timeout", 0, "default per-request timeout")
	startupDelay := fs.Duration("startup-delay", 0, "pause after starting the server, overrides the table")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	showVersion := fs.Bool("version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintln(stdout, "mcpcheck", Version)

		return exitOK
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if *cases == "" {
		log.Error("-cases is required")
		fs.Usage()

		return exitUsage
	}

	suite, err := mcpcheck.LoadCases(*cases)
	if err != nil {
		log.Error("Failed to load case table", "path", *cases, "error", err)

		return exitUsage
	}

	if *session != "" {
		suite.Server.Session = mcpcheck.SessionMode(*session)
	}

	if m := suite.Server.Session; m != "" && m != mcpcheck.SessionShared && m != mcpcheck.SessionPerCase {
		log.Error("Invalid session mode", "session", m)

		return exitUsage
	}

	opts := []mcpcheck.Option{
		mcpcheck.WithLogger(log),
		mcpcheck.WithStderr(func(line string) {
			log.Debug("Server stderr", "line", line)
		}),
	}

	if *server != "" {
		opts = append(opts, mcpcheck.WithCommand(*server))
	}

	if len(serverArgs) > 0 {
		opts = append(opts, mcpcheck.WithArgs(serverArgs...))
	}

	if *cwd != "" {
		opts = append(opts, mcpcheck.WithCwd(*cwd))
	}

	if *timeout > 0 {
		opts = append(opts, mcpcheck.WithRequestTimeout(*timeout))
	}

	if *startupDelay > 0 {
		opts = append(opts, mcpcheck.WithStartupDelay(*startupDelay))
	}

	report, runErr := mcpcheck.RunSuite(ctx, suite, opts...)

	if err := report.SaveReport(*reportPath); err != nil {
		log.Error("Failed to write report", "path", *reportPath, "error", err)

		return exitUsage
	}

	printSummary(stdout, report, *reportPath)

	switch {
	case runErr != nil:
		log.Warn("Run interrupted", "error", runErr)

		return exitAborted
	case !report.OK():
		return exitFailed
	default:
		return exitOK
	}
}

func printSummary(w io.Writer, report *mcpcheck.Report, path string) {
	for _, res := range report.Tests {
		status := "PASS"

		switch {
		case res.Skipped:
			status = "SKIP"
		case !res.Passed:
			status = "FAIL"
		}

		fmt.Fprintf(w, "%s  %s\n", status, res.Name)

		if !res.Passed && res.Diagnostic != "" {
			fmt.Fprintf(w, "      %s\n", res.Diagnostic)
		}
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%d total, %d passed, %d failed, %d skipped (%.1f%%) in %s\n",
		s.Total, s.Passed, s.Failed, s.Skipped, s.PassRate,
		(time.Duration(s.DurationMs) * time.Millisecond).String())
	fmt.Fprintf(w, "Report written to %s\n", path)
}
