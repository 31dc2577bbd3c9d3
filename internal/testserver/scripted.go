package testserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// scriptedRequest is the subset of an incoming message the scripted server reads.
type scriptedRequest struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// toolCall is the params shape of tools/call.
type toolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// scripted is a line-oriented JSON-RPC server with configurable misbehavior.
type scripted struct {
	mode   string
	out    io.Writer
	errOut io.Writer
	mu     sync.Mutex // Serializes writes to out
	wg     sync.WaitGroup
}

// runScripted serves requests from in until it closes.
func runScripted(mode string, in io.Reader, out, errOut io.Writer) error {
	s := &scripted{mode: mode, out: out, errOut: errOut}

	fmt.Fprintln(errOut, ReadyBanner)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var req scriptedRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			fmt.Fprintf(errOut, "unparseable request: %v\n", err)

			continue
		}

		// Notifications and client responses need no answer.
		if len(req.ID) == 0 || req.Method == "" {
			continue
		}

		if s.mode == ModeSilent {
			continue
		}

		if s.mode == ModeCrash && req.Method == "tools/call" {
			fmt.Fprintln(errOut, "fatal: crashing on tools/call")
			os.Exit(CrashExitCode)
		}

		s.handle(req)
	}

	s.wg.Wait()

	return scanner.Err()
}

// handle answers one request, asynchronously when the tool asks for a delay.
func (s *scripted) handle(req scriptedRequest) {
	if req.Method == "tools/call" {
		var call toolCall
		_ = json.Unmarshal(req.Params, &call)

		if call.Name == "sleep" {
			delay := time.Duration(numberArg(call.Arguments, "ms")) * time.Millisecond

			s.wg.Go(func() {
				time.Sleep(delay)
				s.respond(req.ID, s.result(req), nil)
			})

			return
		}
	}

	result, rpcErr := s.dispatch(req)
	s.respond(req.ID, result, rpcErr)
}

// result is dispatch without the error branch, for tools known to succeed.
func (s *scripted) result(req scriptedRequest) any {
	result, _ := s.dispatch(req)

	return result
}

// dispatch computes the result or error object for a request.
func (s *scripted) dispatch(req scriptedRequest) (any, map[string]any) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "scripted", "version": "0.0.1"},
		}, nil

	case "ping":
		return map[string]any{}, nil

	case "tools/list":
		return map[string]any{"tools": []any{
			map[string]any{
				"name": "echo",
				"inputSchema": map[string]any{
					"type":       "object",
					"properties": map[string]any{"text": map[string]any{"type": "string"}},
					"required":   []any{"text"},
				},
			},
			map[string]any{
				"name":        "sleep",
				"inputSchema": map[string]any{"type": "object"},
			},
			map[string]any{
				"name":        "fail",
				"inputSchema": map[string]any{"type": "object"},
			},
		}}, nil

	case "tools/call":
		var call toolCall
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return nil, map[string]any{"code": -32602, "message": "invalid params"}
		}

		switch call.Name {
		case "echo", "sleep":
			args, _ := json.Marshal(call.Arguments)

			return textResult(string(args), false), nil
		case "fail":
			return textResult("tool failed on purpose", true), nil
		default:
			return nil, map[string]any{"code": -32602, "message": "unknown tool: " + call.Name}
		}

	case "debug/echo":
		return map[string]any{"method": req.Method, "params": req.Params}, nil

	default:
		return nil, map[string]any{"code": -32601, "message": "method not found: " + req.Method}
	}
}

// respond writes the mode's preamble and then the response line.
func (s *scripted) respond(id json.RawMessage, result any, rpcErr map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeNoisy:
		s.writeLine(map[string]any{
			"jsonrpc": "2.0",
			"method":  "notifications/message",
			"params":  map[string]any{"level": "info", "data": "working"},
		})
		s.writeLine(map[string]any{"jsonrpc": "2.0", "id": 987654321, "result": map[string]any{}})
		s.writeLine(map[string]any{"jsonrpc": "2.0", "id": id, "method": "ping"})

	case ModeGarbage:
		fmt.Fprint(s.out, "\n   \nnot json at all\n[1,2,3]\n{\"jsonrpc\":\"2.0\"}\n")
	}

	msg := map[string]any{"jsonrpc": "2.0", "id": id}
	if rpcErr != nil {
		msg["error"] = rpcErr
	} else {
		msg["result"] = result
	}

	s.writeLine(msg)
}

// writeLine encodes v as one line. Caller must hold s.mu.
func (s *scripted) writeLine(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(s.errOut, "marshal response: %v\n", err)

		return
	}

	_, _ = s.out.Write(append(data, '\n'))
}

func textResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []any{map[string]any{"type": "text", "text": text}},
		"isError": isError,
	}
}

func numberArg(args map[string]any, key string) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}

	return 0
}
