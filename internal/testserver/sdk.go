package testserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// EchoInput is the argument shape of the echo tool.
type EchoInput struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

// AddInput is the argument shape of the add tool.
type AddInput struct {
	A int `json:"a" jsonschema:"first addend"`
	B int `json:"b" jsonschema:"second addend"`
}

// AddOutput is the structured result of the add tool.
type AddOutput struct {
	Sum int `json:"sum"`
}

// FailInput is the argument shape of the fail tool.
type FailInput struct {
	Reason string `json:"reason,omitempty" jsonschema:"ignored"`
}

// LookupInput is the argument shape of the lookup tool.
type LookupInput struct {
	FilePath    string `json:"filePath" jsonschema:"file to look symbols up in"`
	DetailLevel string `json:"detailLevel,omitempty" jsonschema:"Compact, Summary or Full"`
}

// SDKServerName is the serverInfo name reported by ModeSDK.
const SDKServerName = "testserver"

// NewSDKServer builds the go-sdk server used by ModeSDK.
//
// Tools:
//   - echo: returns its text argument
//   - add: returns the sum of a and b as structured content
//   - fail: always returns a tool error
//   - lookup: reports symbols for known files and a tool error otherwise
func NewSDKServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: SDKServerName, Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echo the given text",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in EchoInput) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: in.Text}},
		}, nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add",
		Description: "Add two integers",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in AddInput) (*mcp.CallToolResult, AddOutput, error) {
		return nil, AddOutput{Sum: in.A + in.B}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fail",
		Description: "Always fails",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ FailInput) (*mcp.CallToolResult, any, error) {
		return nil, nil, errors.New("tool failed on purpose")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup",
		Description: "Look up symbols in a file",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in LookupInput) (*mcp.CallToolResult, any, error) {
		if !strings.HasSuffix(in.FilePath, ".cs") {
			return nil, nil, fmt.Errorf("file not found: %s", in.FilePath)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("symbols in %s: SimpleTestClass, Calculate, TestMethod", in.FilePath),
			}},
		}, nil, nil
	})

	return server
}

// runSDKServer serves NewSDKServer over stdio until stdin closes.
func runSDKServer() error {
	fmt.Fprintln(os.Stderr, "sdk server ready")

	// Run reports the closed stdin as an error; that is the normal way out.
	if err := NewSDKServer().Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintf(os.Stderr, "sdk server stopped: %v\n", err)
	}

	return nil
}
