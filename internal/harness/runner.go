package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpcheck/internal/client"
	"github.com/wagiedev/mcpcheck/internal/config"
	"github.com/wagiedev/mcpcheck/internal/protocol"
)

// SessionMode selects how many server processes a run uses.
type SessionMode string

const (
	// SessionShared runs every case in one session.
	SessionShared SessionMode = "shared"
	// SessionPerCase starts a fresh server for every case.
	SessionPerCase SessionMode = "per-case"
)

// closeTimeout bounds how long a run waits for a session to shut down.
const closeTimeout = 15 * time.Second

// Runner executes case tables sequentially.
type Runner struct {
	log     *slog.Logger
	options *config.Options
	mode    SessionMode
}

// NewRunner creates a runner that launches servers with options.
// An empty mode means SessionShared.
func NewRunner(options *config.Options, mode SessionMode) *Runner {
	opts := options.WithDefaults()

	if mode == "" {
		mode = SessionShared
	}

	return &Runner{
		log:     opts.Logger.With("component", "harness"),
		options: opts,
		mode:    mode,
	}
}

// run is the state of one Run call.
type run struct {
	report *Report
	// tools maps advertised tool names to their definitions; nil until a
	// tools/list succeeds.
	tools map[string]*mcp.Tool
}

// Run executes cases in order and returns the report.
//
// Every failure, including a server that cannot start, becomes a failed
// result; once a Required case fails the remaining cases are skipped.
// The returned error is non-nil only when ctx ended the run early.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	st := &run{report: NewReport(time.Now())}

	r.log.Info("Starting run", "run_id", st.report.RunID, "cases", len(cases), "session", r.mode)

	var (
		shared   *client.Client
		setupErr error
	)

	if r.mode == SessionShared {
		shared, setupErr = r.openSession(ctx, st)
		if shared != nil {
			defer r.closeSession(shared)
		}
	}

	skipReason := ""

	for _, c := range cases {
		if skipReason == "" && ctx.Err() != nil {
			skipReason = "run cancelled: " + ctx.Err().Error()
		}

		if skipReason != "" {
			st.report.Add(Result{
				Name:       c.Name,
				Tool:       c.Tool,
				Input:      c.Arguments,
				Skipped:    true,
				Diagnostic: skipReason,
				Timestamp:  time.Now(),
			})

			continue
		}

		var res Result

		switch {
		case r.mode == SessionPerCase:
			res = r.runFreshCase(ctx, st, c)
		case setupErr != nil:
			res = failedResult(c, setupErr)
		default:
			res = r.runCase(ctx, shared, st, c)
		}

		st.report.Add(res)

		if !res.Passed && c.Required {
			r.log.Warn("Required case failed, skipping the rest", "case", c.Name)

			skipReason = fmt.Sprintf("skipped: required case %q failed", c.Name)
		}
	}

	st.report.Finish(time.Now())

	r.log.Info("Run finished",
		"run_id", st.report.RunID,
		"passed", st.report.Summary.Passed,
		"failed", st.report.Summary.Failed,
		"skipped", st.report.Summary.Skipped,
	)

	return st.report, ctx.Err()
}

// openSession starts a server and performs the handshake. The first
// session of a run also records server info and the advertised tools.
func (r *Runner) openSession(ctx context.Context, st *run) (*client.Client, error) {
	c := client.New()

	if err := c.Start(ctx, r.options); err != nil {
		r.log.Error("Failed to start server", "error", err)

		return nil, fmt.Errorf("start server: %w", err)
	}

	handshake, err := c.Initialize(ctx)
	if err != nil {
		r.log.Error("Handshake failed", "error", err, "stderr", truncate(c.StderrOutput()))
		r.closeSession(c)

		return nil, err
	}

	if st.report.Server == nil {
		info := &ServerInfo{ProtocolVersion: handshake.ProtocolVersion}
		if handshake.ServerInfo != nil {
			info.Name = handshake.ServerInfo.Name
			info.Version = handshake.ServerInfo.Version
		}

		st.report.Server = info
	}

	if st.tools == nil {
		tools, err := c.ListTools(ctx)
		if err != nil {
			// Cases still run; only schema checks are lost.
			r.log.Warn("Failed to list tools", "error", err)

			return c, nil
		}

		st.tools = make(map[string]*mcp.Tool, len(tools))
		for _, tool := range tools {
			st.tools[tool.Name] = tool
			st.report.Tools = append(st.report.Tools, tool.Name)
		}

		r.log.Info("Server advertises tools", "count", len(tools))
	}

	return c, nil
}

func (r *Runner) closeSession(c *client.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := c.Close(ctx); err != nil {
		r.log.Warn("Server did not shut down cleanly", "error", err, "exit_code", c.ExitCode())
	}
}

// runFreshCase runs one case in its own session.
func (r *Runner) runFreshCase(ctx context.Context, st *run, c Case) Result {
	session, err := r.openSession(ctx, st)
	if err != nil {
		return failedResult(c, err)
	}
	defer r.closeSession(session)

	return r.runCase(ctx, session, st, c)
}

// runCase validates, calls and classifies one case.
func (r *Runner) runCase(ctx context.Context, session *client.Client, st *run, c Case) Result {
	start := time.Now()

	res := Result{
		Name:      c.Name,
		Tool:      c.Tool,
		Input:     c.Arguments,
		Timestamp: start,
	}

	if st.tools != nil {
		if tool, ok := st.tools[c.Tool]; ok {
			if err := validateArguments(tool, c.Arguments); err != nil {
				res.SchemaError = err.Error()
			}
		} else {
			res.SchemaError = fmt.Sprintf("tool %q is not advertised by the server", c.Tool)
		}
	}

	arguments := c.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}

	resp, err := session.CallTool(ctx, c.Tool, arguments, c.Timeout)
	verdict := Classify(c, Outcome{Response: resp, Err: err})

	res.Output = outputOf(resp, err)
	res.Passed = verdict.Passed
	res.Diagnostic = verdict.Diagnostic
	res.DurationMs = time.Since(start).Milliseconds()

	log := r.log.With("case", c.Name, "tool", c.Tool, "duration_ms", res.DurationMs)
	if res.SchemaError != "" {
		log.Warn("Arguments violate input schema", "error", res.SchemaError)
	}

	if res.Passed {
		log.Info("Case passed")
	} else {
		log.Warn("Case failed", "diagnostic", res.Diagnostic)
	}

	return res
}

// failedResult records a case that could not be attempted.
func failedResult(c Case, err error) Result {
	return Result{
		Name:       c.Name,
		Tool:       c.Tool,
		Input:      c.Arguments,
		Output:     map[string]any{"error": err.Error()},
		Diagnostic: truncate(err.Error()),
		Timestamp:  time.Now(),
	}
}

// outputOf converts a response into plain data for the report.
func outputOf(resp *protocol.Response, err error) any {
	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	data, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return map[string]any{"error": marshalErr.Error()}
	}

	var out any
	if json.Unmarshal(data, &out) != nil {
		return string(data)
	}

	return out
}
