// Package protocol implements JSON-RPC 2.0 framing and response correlation
// for a tool server reached over a line-delimited stream.
//
// The package is built from three cooperating parts:
//   - Reader drains the server's output one line at a time, decodes each
//     line, and appends every message to the Inbox in arrival order
//   - Inbox is an append-only, lock-protected log of everything the server
//     sent, shared between the Reader (sole writer) and any number of waits
//   - Correlator resolves a request id to its response by scanning the Inbox
//     forward from the offset recorded before the request was written
//
// Notifications, responses to other ids, and server-originated requests are
// left in the Inbox untouched; a wait only ever returns the response to its
// own id.
//
// Example usage:
//
//	inbox := protocol.NewInbox()
//	reader := protocol.NewReader(log, transport, inbox, nil)
//	go reader.Run()
//
//	correlator := protocol.NewCorrelator(log, inbox, 100*time.Millisecond)
//	pending := correlator.Begin()
//	// write request 1 ...
//	msg, err := pending.Wait(ctx, 1, 5*time.Second)
package protocol
