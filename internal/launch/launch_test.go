package launch

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcpcheck/internal/config"
	"github.com/wagiedev/mcpcheck/internal/errors"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}

func TestDiscover_ExplicitAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	server := filepath.Join(dir, "server")
	writeExecutable(t, server)

	path, err := NewDiscoverer(&Config{Command: server}).Discover()
	require.NoError(t, err)
	require.Equal(t, server, path)
}

func TestDiscover_ExplicitRelativePathResolvedAgainstCwd(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, filepath.Join(dir, "tools", "server"))

	path, err := NewDiscoverer(&Config{Command: "./tools/server", Cwd: dir}).Discover()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "tools", "server"), path)
}

func TestDiscover_ExplicitPathMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := NewDiscoverer(&Config{Command: filepath.Join(dir, "missing")}).Discover()

	notFound, ok := stderrors.AsType[*errors.ServerNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{filepath.Join(dir, "missing")}, notFound.SearchedPaths)
}

func TestDiscover_LocalPublishDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test uses unix executable names")
	}

	dir := t.TempDir()
	writeExecutable(t, filepath.Join(dir, "publish", "mcpcheck-test-server-xyz"))

	path, err := NewDiscoverer(&Config{Command: "mcpcheck-test-server-xyz", Cwd: dir}).Discover()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "publish", "mcpcheck-test-server-xyz"), path)
}

func TestDiscover_NotFoundListsSearchedPaths(t *testing.T) {
	dir := t.TempDir()

	_, err := NewDiscoverer(&Config{Command: "mcpcheck-no-such-server", Cwd: dir}).Discover()

	notFound, ok := stderrors.AsType[*errors.ServerNotFoundError](err)
	require.True(t, ok)
	require.Contains(t, notFound.SearchedPaths, "$PATH")
	require.Contains(t, notFound.SearchedPaths, filepath.Join(dir, "bin", "mcpcheck-no-such-server"))
}

func TestDiscover_EmptyCommand(t *testing.T) {
	_, err := NewDiscoverer(nil).Discover()

	_, ok := stderrors.AsType[*errors.ServerNotFoundError](err)
	require.True(t, ok)
}

func TestBuildEnvironment(t *testing.T) {
	env := BuildEnvironment(&config.Options{
		ClientName:    "mcpcheck",
		ClientVersion: "1.0",
		Env: map[string]string{
			"B_VAR": "2",
			"A_VAR": "1",
		},
	})

	require.Contains(t, env, "MCPCHECK=1")
	require.Contains(t, env, "MCPCHECK_CLIENT=mcpcheck/1.0")

	// User variables come last, in key order.
	require.Equal(t, []string{"A_VAR=1", "B_VAR=2"}, env[len(env)-2:])
}

func TestBuildEnvironment_NilOptions(t *testing.T) {
	env := BuildEnvironment(nil)
	require.Equal(t, "MCPCHECK=1", env[len(env)-1])
}
