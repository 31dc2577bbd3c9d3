package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wagiedev/mcpcheck/internal/errors"
)

// Version is the only JSON-RPC version spoken on the wire.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC request sent to the server.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request envelope.
func NewRequest(id int64, method string, params any) *Request {
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// Notification is a JSON-RPC notification: a request without an id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification builds a notification envelope.
func NewNotification(method string, params any) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AsError converts the error object into an *errors.RPCError.
func (e *Error) AsError() error {
	return &errors.RPCError{Code: e.Code, Message: e.Message, Data: e.Data}
}

// Response is a JSON-RPC response: exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsError reports whether the server answered with an error object.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// Err returns the error object as an *errors.RPCError, or nil.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}

	return r.Error.AsError()
}

// DecodeResult unmarshals the result into out.
// It returns *errors.RPCError for error responses and *errors.DecodeError
// when the result does not fit out.
func (r *Response) DecodeResult(out any) error {
	if r.Error != nil {
		return r.Error.AsError()
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(r.Result, out); err != nil {
		return &errors.DecodeError{RawData: string(r.Result), Err: fmt.Errorf("decode %T result: %w", out, err)}
	}

	return nil
}

// Kind classifies an inbox message.
type Kind int

const (
	// KindResponse is a message without a method: the answer to a request.
	KindResponse Kind = iota
	// KindNotification is a server message with a method and no id.
	KindNotification
	// KindRequest is a server-originated request: a method and an id.
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	case KindRequest:
		return "request"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Message is one decoded line from the server, as stored in the Inbox.
// Messages are immutable once appended.
type Message struct {
	// Seq is the message's absolute offset in the Inbox.
	Seq int
	// ReceivedAt is when the Reader decoded the line.
	ReceivedAt time.Time
	// Raw is the line as received, without surrounding whitespace.
	Raw json.RawMessage

	// ID is set for responses and requests with an integer id.
	ID *int64
	// RawID is the id exactly as sent; server requests may use string ids.
	RawID json.RawMessage

	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *Error
}

// Kind classifies the message.
func (m *Message) Kind() Kind {
	switch {
	case m.Method == "":
		return KindResponse
	case len(m.RawID) == 0:
		return KindNotification
	default:
		return KindRequest
	}
}

// IsResponseTo reports whether the message is the response to request id.
// Server requests that happen to carry the same id never match.
func (m *Message) IsResponseTo(id int64) bool {
	return m.Kind() == KindResponse && m.ID != nil && *m.ID == id
}

// Response converts a response message into a Response.
func (m *Message) Response() *Response {
	resp := &Response{
		JSONRPC: Version,
		Result:  m.Result,
		Error:   m.Error,
	}

	if m.ID != nil {
		resp.ID = *m.ID
	}

	return resp
}

// envelope is the union of all JSON-RPC message fields.
type envelope struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Decode parses one line of server output.
//
// It returns *errors.DecodeError when the line is not JSON, and
// *errors.ProtocolError when it is JSON but not a single well-formed
// JSON-RPC 2.0 message (batches are not supported).
func Decode(line []byte) (*Message, error) {
	raw := bytes.TrimSpace(line)

	if !json.Valid(raw) {
		var probe any

		err := json.Unmarshal(raw, &probe)
		if err == nil {
			err = fmt.Errorf("invalid JSON")
		}

		return nil, &errors.DecodeError{RawData: string(raw), Err: err}
	}

	if raw[0] != '{' {
		return nil, protocolErr(raw, "message is not a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, protocolErr(raw, "malformed envelope: "+err.Error())
	}

	if env.JSONRPC == nil {
		return nil, protocolErr(raw, "missing jsonrpc version")
	}

	if *env.JSONRPC != Version {
		return nil, protocolErr(raw, fmt.Sprintf("unsupported jsonrpc version %q", *env.JSONRPC))
	}

	msg := &Message{
		Raw:    json.RawMessage(raw),
		Params: env.Params,
	}

	if env.Method != nil {
		if *env.Method == "" {
			return nil, protocolErr(raw, "empty method")
		}

		msg.Method = *env.Method
	}

	hasID := len(env.ID) > 0 && !bytes.Equal(env.ID, []byte("null"))
	if hasID {
		msg.RawID = env.ID

		if id, err := strconv.ParseInt(string(env.ID), 10, 64); err == nil {
			msg.ID = &id
		}
	}

	if msg.Method != "" {
		if hasID && env.ID[0] != '"' && msg.ID == nil {
			return nil, protocolErr(raw, "request id must be an integer or string")
		}

		return msg, nil
	}

	// Without a method this must be a response.
	if len(env.ID) == 0 {
		return nil, protocolErr(raw, "message has neither method nor id")
	}

	if hasID && msg.ID == nil {
		return nil, protocolErr(raw, "response id must be an integer")
	}

	hasResult := len(env.Result) > 0
	hasError := len(env.Error) > 0 && !bytes.Equal(env.Error, []byte("null"))

	switch {
	case hasResult && hasError:
		return nil, protocolErr(raw, "response has both result and error")
	case !hasResult && !hasError:
		return nil, protocolErr(raw, "response has neither result nor error")
	case hasError:
		var rpcErr Error
		if err := json.Unmarshal(env.Error, &rpcErr); err != nil {
			return nil, protocolErr(raw, "malformed error object: "+err.Error())
		}

		msg.Error = &rpcErr
	default:
		msg.Result = env.Result
	}

	return msg, nil
}

func protocolErr(raw []byte, reason string) *errors.ProtocolError {
	return &errors.ProtocolError{Reason: reason, RawData: string(raw)}
}
