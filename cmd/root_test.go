package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockdesk/internal/cli"
	"stockdesk/internal/session"
)

func TestSetVersion(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "stockdesk", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)

	for _, name := range []string{"auth", "get", "create", "update", "delete", "version", "self-update"} {
		found, _, err := rootCmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, found.Name())
		}
	}
}

func TestGetExitCode(t *testing.T) {
	const endpoint = "https://stock.example.com"

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitCodeError},
		{"auth required", &cli.AuthRequiredError{Endpoint: endpoint}, ExitCodeAuthRequired},
		{"auth expired", fmt.Errorf("get: %w", &cli.AuthExpiredError{Endpoint: endpoint, Reason: session.EndReasonExpired}), ExitCodeAuthRequired},
		{"auth failed", &cli.AuthFailedError{Endpoint: endpoint, Reason: errors.New("bad")}, ExitCodeAuthFailed},
		{"reported auth failure", &cli.ReportedError{Err: &cli.AuthFailedError{Endpoint: endpoint, Reason: errors.New("bad")}}, ExitCodeAuthFailed},
		{"unreachable", &cli.ConnectionError{Endpoint: endpoint, Type: cli.ConnectionErrorNetwork, Reason: errors.New("refused")}, ExitCodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}
