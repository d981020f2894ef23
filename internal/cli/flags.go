package cli

import (
	"github.com/spf13/cobra"

	"stockdesk/internal/config"
)

// CommandFlags holds the flag values shared by commands that talk to the API.
type CommandFlags struct {
	// OutputFormat is table, wide, json, yaml or go-template=<tpl>
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
	// Endpoint overrides api.endpoint from the configuration
	Endpoint string
}

// RegisterCommonFlags registers the flags used by commands that connect to
// the API and print records.
//
// The registered flags are:
//   - --output/-o: Output format, default from output.format
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --config-path: Configuration directory
//   - --endpoint: API root URL (env: STOCKDESK_ENDPOINT)
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", "", "Output format (table, wide, json, yaml, go-template=...)")
	cmd.PersistentFlags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	RegisterConnectionFlags(cmd, flags)
}

// RegisterConnectionFlags registers only the connection-related flags, for
// commands that do not print records.
func RegisterConnectionFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	cmd.PersistentFlags().StringVar(&flags.Endpoint, "endpoint", "", "API root URL (env: "+config.EnvEndpoint+")")
}

// Apply overlays explicitly set flags onto a loaded configuration.
func (f *CommandFlags) Apply(cfg *config.StockdeskConfig) {
	if f.Endpoint != "" {
		cfg.API.Endpoint = f.Endpoint
	}
	if f.OutputFormat != "" {
		cfg.Output.Format = f.OutputFormat
	}
}
