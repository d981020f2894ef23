package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stockdesk/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/stockdesk"
	configFileName = "config.yaml"

	// EnvEndpoint overrides api.endpoint.
	EnvEndpoint = "STOCKDESK_ENDPOINT"
	// EnvTokenDir overrides session.tokenDir.
	EnvTokenDir = "STOCKDESK_TOKEN_DIR"
	// EnvLogLevel overrides logging.level.
	EnvLogLevel = "STOCKDESK_LOG_LEVEL"
)

// lookupEnv is a variable so tests can substitute the environment.
var lookupEnv = os.LookupEnv

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath on top of the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func LoadConfig(configPath string) (StockdeskConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return StockdeskConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return StockdeskConfig{}, err
	}

	applyEnvOverrides(&config)

	if errs := Validate(config); errs.HasErrors() {
		return StockdeskConfig{}, fmt.Errorf("invalid configuration in %s: %w", configFilePath, errs)
	}
	return config, nil
}

// SaveConfig writes config to configPath/config.yaml.
func SaveConfig(configPath string, config StockdeskConfig) error {
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(filepath.Join(configPath, configFileName), data, 0600)
}

func applyEnvOverrides(config *StockdeskConfig) {
	if v, ok := lookupEnv(EnvEndpoint); ok && v != "" {
		config.API.Endpoint = v
	}
	if v, ok := lookupEnv(EnvTokenDir); ok && v != "" {
		config.Session.TokenDir = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		config.Logging.Level = v
	}
}
