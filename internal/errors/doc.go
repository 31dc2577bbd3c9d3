// Package errors defines error types for the mcpcheck harness.
//
// This package provides structured error types for every failure the
// JSON-RPC stdio client can report: a closed transport, a correlation
// timeout, undecodable output, malformed envelopes, and server-side error
// objects. All error types support error unwrapping and can be checked
// using errors.Is, errors.As, and errors.AsType.
package errors
