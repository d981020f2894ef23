package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/config"
)

func TestRegisterCommonFlags(t *testing.T) {
	var flags CommandFlags
	cmd := &cobra.Command{Use: "get"}
	RegisterCommonFlags(cmd, &flags)

	for _, name := range []string{"output", "no-headers", "quiet", "config-path", "endpoint"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	require.NoError(t, cmd.PersistentFlags().Parse([]string{"-o", "json", "--endpoint", "https://stock.example.com"}))

	cfg := config.GetDefaultConfig()
	flags.Apply(&cfg)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "https://stock.example.com", cfg.API.Endpoint)
}

func TestApply_KeepsConfigWhenFlagsUnset(t *testing.T) {
	cfg := config.GetDefaultConfig()
	(&CommandFlags{}).Apply(&cfg)
	assert.Equal(t, config.GetDefaultConfig(), cfg)
}
