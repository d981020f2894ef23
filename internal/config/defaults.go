package config

import "time"

const (
	// DefaultEndpoint is used when neither the config file nor the
	// environment names an API.
	DefaultEndpoint = "http://localhost:8000"

	DefaultLoginPath    = "/api/auth/login/"
	DefaultRefreshPath  = "/api/auth/refresh/"
	DefaultRegisterPath = "/api/auth/register/"
	DefaultMePath       = "/api/auth/me/"

	DefaultRequestTimeout = 60 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() StockdeskConfig {
	return StockdeskConfig{
		API: APIConfig{
			Endpoint:       DefaultEndpoint,
			LoginPath:      DefaultLoginPath,
			RefreshPath:    DefaultRefreshPath,
			RegisterPath:   DefaultRegisterPath,
			MePath:         DefaultMePath,
			RequestTimeout: DefaultRequestTimeout,
			RefreshTimeout: DefaultRefreshTimeout,
		},
		Session: SessionConfig{
			Persist: true,
			Watch:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: OutputFormatTable,
		},
	}
}
