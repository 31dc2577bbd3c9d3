// Package launch locates the tool server executable and builds the
// environment it is started with.
//
// # Discovery
//
// The Discoverer resolves Options.Command to an executable path:
//
//	discoverer := launch.NewDiscoverer(&launch.Config{
//	    Command: "CSharpMcp.Server",
//	    Cwd:     "/src/project",
//	    Logger:  slog.Default(),
//	})
//	path, err := discoverer.Discover()
//
// A command containing a path separator is used as-is (relative paths are
// resolved against Cwd). A bare name is searched in:
//  1. The system PATH
//  2. <Cwd>/publish and <Cwd>/bin
//
// # Environment
//
// BuildEnvironment returns the current process environment extended with
// harness markers and Options.Env.
package launch
