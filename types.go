package mcpcheck

import "github.com/wagiedev/mcpcheck/internal/protocol"

// Response is a decoded JSON-RPC response.
type Response = protocol.Response

// RPCErrorObject is the error member of a JSON-RPC response.
type RPCErrorObject = protocol.Error

// Message is one line received from the server.
type Message = protocol.Message

// MessageKind tells responses, notifications and server requests apart.
type MessageKind = protocol.Kind

// Message kinds.
const (
	KindResponse     = protocol.KindResponse
	KindNotification = protocol.KindNotification
	KindRequest      = protocol.KindRequest
)

// Inbox holds every line received in a session, in arrival order.
type Inbox = protocol.Inbox

// MalformedLine is a received line that was not a JSON-RPC message.
type MalformedLine = protocol.Malformed
