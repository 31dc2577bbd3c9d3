// Package testserver provides fake tool servers for tests.
//
// Test binaries re-execute themselves as the server: a package's TestMain
// calls RunIfRequested, which takes over the process when EnvMode is set.
//
//	func TestMain(m *testing.M) {
//	    testserver.RunIfRequested()
//	    os.Exit(m.Run())
//	}
//
//	command, env := testserver.Command(testserver.ModeSDK)
//
// ModeSDK runs a real MCP server built on the official go-sdk. The other
// modes run a scripted line-oriented server whose misbehavior is chosen by
// the mode: interleaved notifications, silence, malformed output, crashes.
package testserver
