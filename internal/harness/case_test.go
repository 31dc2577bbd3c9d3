package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleTable = `
name: smoke
server:
  command: ./publish/server
  args: [--stdio]
  env:
    LOG_LEVEL: debug
  startupDelay: 2s
  session: per-case
defaults:
  timeout: 5s
  required: true
cases:
  - name: lookup - known file
    tool: lookup
    arguments:
      filePath: SimpleTestClass.cs
      detailLevel: Full
      lines: [1, 2]
    expect:
      contains: [SimpleTestClass]
      notContains: [No Workspace]
  - name: lookup - not found (error)
    tool: lookup
    arguments: {filePath: missing.txt}
    required: false
    timeout: 1m
  - name: echo
    tool: echo
    expect:
      status: error
`

func TestParseCases(t *testing.T) {
	suite, err := ParseCases(strings.NewReader(sampleTable))
	require.NoError(t, err)

	require.Equal(t, "smoke", suite.Name)
	require.Equal(t, "./publish/server", suite.Server.Command)
	require.Equal(t, []string{"--stdio"}, suite.Server.Args)
	require.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, suite.Server.Env)
	require.Equal(t, 2*time.Second, suite.Server.StartupDelay)
	require.Equal(t, SessionPerCase, suite.Server.Session)

	require.Len(t, suite.Cases, 3)

	first := suite.Cases[0]
	require.Equal(t, "lookup", first.Tool)
	require.Equal(t, "SimpleTestClass.cs", first.Arguments["filePath"])
	require.Equal(t, []any{1, 2}, first.Arguments["lines"])
	require.Equal(t, []string{"SimpleTestClass"}, first.Expect.Contains)
	require.Equal(t, []string{"No Workspace"}, first.Expect.NotContains)
	require.True(t, first.Required, "defaults.required applies")
	require.Equal(t, 5*time.Second, first.Timeout, "defaults.timeout applies")
	require.False(t, first.ExpectsFailure())

	second := suite.Cases[1]
	require.False(t, second.Required, "explicit required: false wins")
	require.Equal(t, time.Minute, second.Timeout)
	require.True(t, second.ExpectsFailure())

	third := suite.Cases[2]
	require.Nil(t, third.Arguments)
	require.True(t, third.ExpectsFailure(), "expect.status overrides the name")
}

func TestParseCases_Errors(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  string
	}{
		{"empty", "", "empty case table"},
		{"missing name", "cases:\n  - tool: echo\n", "missing name"},
		{"missing tool", "cases:\n  - name: a\n", "missing tool"},
		{"duplicate", "cases:\n  - {name: a, tool: echo}\n  - {name: a, tool: echo}\n", "duplicate name"},
		{"unknown field", "cases:\n  - {name: a, tool: echo, argumnets: {}}\n", "argumnets"},
		{"bad status", "cases:\n  - {name: a, tool: echo, expect: {status: maybe}}\n", "expect.status"},
		{"bad session", "server: {session: pooled}\ncases: []\n", "server.session"},
		{"bad timeout", "defaults: {timeout: soon}\ncases: []\n", "parse case table"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCases(strings.NewReader(tc.table))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadCases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o600))

	suite, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, suite.Cases, 3)

	_, err = LoadCases(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "open case table")
}
