// Package mcpcheck drives an MCP tool server over its standard streams and
// checks its tools against a case table.
//
// The server is launched as a child process and spoken to in newline
// delimited JSON-RPC 2.0. Every line the server writes is kept in an
// append-only inbox; a request waits for the first response carrying its
// id, skipping notifications, log noise and server-originated requests.
//
// # Interactive Sessions
//
// Use NewClient or the WithClient helper to talk to a server directly:
//
//	err := mcpcheck.WithClient(ctx, func(c mcpcheck.Client) error {
//	    tools, err := c.ListTools(ctx)
//	    if err != nil {
//	        return err
//	    }
//
//	    resp, err := c.CallTool(ctx, tools[0].Name, map[string]any{}, 0)
//	    if err != nil {
//	        return err
//	    }
//
//	    fmt.Println(string(resp.Result))
//
//	    return nil
//	},
//	    mcpcheck.WithCommand("./publish/server"),
//	    mcpcheck.WithLogger(slog.Default()),
//	)
//
// WithClient performs the initialize handshake before calling the callback.
//
// # Case Tables
//
// RunSuite runs a YAML case table and returns a report:
//
//	suite, err := mcpcheck.LoadCases("cases.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := mcpcheck.RunSuite(ctx, suite, mcpcheck.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = report.SaveReport("results.json")
//
// A case whose name contains "error", "invalid", "not found" or
// "no matches" expects the tool to fail; an explicit expect.status
// overrides the name.
//
// # Error Handling
//
// The package provides typed errors for the common failure modes:
//
//	resp, err := c.Call(ctx, "tools/list", nil, 0)
//	if errors.Is(err, mcpcheck.ErrRequestTimeout) {
//	    // no response with this id in time
//	}
//	if processErr, ok := errors.AsType[*mcpcheck.ProcessError](err); ok {
//	    fmt.Println(processErr.ExitCode, processErr.Stderr)
//	}
//
// A JSON-RPC error response is not a Go error: it comes back as a Response
// with Error set.
package mcpcheck
