// Package client implements the JSON-RPC client that drives a tool server
// over its standard streams.
//
// A Client owns one server process for the lifetime of a session. It
// composes the pieces of the protocol package:
//   - a Transport that writes request lines and reads response lines
//   - a Reader goroutine that drains server output into an Inbox
//   - a Correlator that matches responses to requests by id
//
// Calls are safe for concurrent use. Request ids are allocated from an
// atomic counter starting at 1 and are never reused within a session.
// Unsolicited notifications and server requests are kept in the Inbox and
// never satisfy a wait; server pings are answered so the server does not
// stall.
//
// On top of Call the client offers the MCP handshake and tool helpers
// (Initialize, ListTools, CallTool) using the go-sdk wire types.
package client
