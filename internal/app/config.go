package app

import (
	"io"

	"stockdesk/internal/config"
	"stockdesk/internal/console"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of logging.level
	Debug bool

	// Quiet suppresses log output below warnings
	Quiet bool

	// ConfigPath is the configuration directory
	ConfigPath string

	// Watch overrides session.watch when set. Long-running commands turn
	// it on, one-shot commands leave it off.
	Watch *bool

	// UserAgent identifies the binary to the API
	UserAgent string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// Notifier and Navigator receive session notifications
	Notifier  console.Notifier
	Navigator console.Navigator

	// StockdeskConfig is loaded from ConfigPath when nil
	StockdeskConfig *config.StockdeskConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, quiet bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Quiet:      quiet,
		ConfigPath: configPath,
	}
}
