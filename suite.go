package mcpcheck

import (
	"context"

	"github.com/wagiedev/mcpcheck/internal/harness"
)

// Case is one tool invocation and its expected outcome.
type Case = harness.Case

// Expectation refines how a case's outcome is judged.
type Expectation = harness.Expectation

// Suite is a loaded case table.
type Suite = harness.Suite

// ServerConfig is the server block of a case table.
type ServerConfig = harness.ServerConfig

// SessionMode selects how many server processes a run uses.
type SessionMode = harness.SessionMode

// Session modes.
const (
	SessionShared  = harness.SessionShared
	SessionPerCase = harness.SessionPerCase
)

// Report is the outcome of a run.
type Report = harness.Report

// Result is the outcome of one case.
type Result = harness.Result

// Verdict is the judgement of a single outcome.
type Verdict = harness.Verdict

// Outcome is what a call produced: a response, an error, or neither.
type Outcome = harness.Outcome

// LoadCases reads a YAML case table from path.
func LoadCases(path string) (*Suite, error) {
	return harness.LoadCases(path)
}

// ExpectsError reports whether a case name marks the case as expecting
// failure.
func ExpectsError(name string) bool {
	return harness.ExpectsError(name)
}

// Classify judges an outcome against a case.
func Classify(c Case, o Outcome) Verdict {
	return harness.Classify(c, o)
}

// RunSuite runs every case of suite in order and returns the report.
//
// The suite's server block is applied first; opts override it, so a
// command line can point a table at a different build of the server.
// The error is non-nil only when ctx ended the run early; failing cases
// are reported, not returned.
func RunSuite(ctx context.Context, suite *Suite, opts ...Option) (*Report, error) {
	options := applyOptions(append(serverOptions(suite.Server), opts...))

	return harness.NewRunner(options, suite.Server.Session).Run(ctx, suite.Cases)
}

// serverOptions converts a case table's server block into options.
func serverOptions(server ServerConfig) []Option {
	var opts []Option

	if server.Command != "" {
		opts = append(opts, WithCommand(server.Command))
	}

	if len(server.Args) > 0 {
		opts = append(opts, WithArgs(server.Args...))
	}

	if server.Cwd != "" {
		opts = append(opts, WithCwd(server.Cwd))
	}

	if len(server.Env) > 0 {
		opts = append(opts, WithEnv(server.Env))
	}

	if server.StartupDelay > 0 {
		opts = append(opts, WithStartupDelay(server.StartupDelay))
	}

	return opts
}
