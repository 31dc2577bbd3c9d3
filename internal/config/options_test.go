package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithDefaults_NilReceiver(t *testing.T) {
	var o *Options

	got := o.WithDefaults()

	require.NotNil(t, got.Logger)
	require.Equal(t, DefaultRequestTimeout, got.RequestTimeout)
	require.Equal(t, DefaultPollInterval, got.PollInterval)
	require.Equal(t, DefaultTerminateGrace, got.TerminateGrace)
	require.Equal(t, DefaultMaxLineSize, got.MaxLineSize)
	require.Equal(t, DefaultProtocolVersion, got.ProtocolVersion)
	require.Equal(t, DefaultClientName, got.ClientName)
	require.Equal(t, DefaultClientVersion, got.ClientVersion)
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	o := &Options{
		Command:        "server",
		RequestTimeout: 3 * time.Second,
		PollInterval:   20 * time.Millisecond,
		ClientName:     "ci",
	}

	got := o.WithDefaults()

	require.Equal(t, "server", got.Command)
	require.Equal(t, 3*time.Second, got.RequestTimeout)
	require.Equal(t, 20*time.Millisecond, got.PollInterval)
	require.Equal(t, "ci", got.ClientName)
	require.Equal(t, DefaultClientVersion, got.ClientVersion)

	// The receiver is not modified.
	require.Nil(t, o.Logger)
	require.Zero(t, o.MaxLineSize)
}

func TestWithDefaults_RequestTimeoutFromEnv(t *testing.T) {
	t.Setenv(RequestTimeoutEnv, "45s")

	got := (&Options{}).WithDefaults()
	require.Equal(t, 45*time.Second, got.RequestTimeout)

	explicit := (&Options{RequestTimeout: time.Second}).WithDefaults()
	require.Equal(t, time.Second, explicit.RequestTimeout)
}

func TestWithDefaults_InvalidEnvIgnored(t *testing.T) {
	t.Setenv(RequestTimeoutEnv, "soon")

	got := (&Options{}).WithDefaults()
	require.Equal(t, DefaultRequestTimeout, got.RequestTimeout)
}
