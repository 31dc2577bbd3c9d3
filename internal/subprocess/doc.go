// Package subprocess provides the stdio transport to an out-of-process
// tool server.
//
// This package implements the config.Transport interface by spawning the
// server as a child process and exchanging newline-delimited messages over
// its stdin and stdout. It handles process lifecycle, stderr capture, and
// the distinction between an intentional shutdown and a crash.
package subprocess
