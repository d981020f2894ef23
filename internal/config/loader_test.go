package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0600))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	withEnv(t, nil)

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	writeConfig(t, dir, `
api:
  endpoint: https://stock.example.com
  refreshTimeout: 5s
output:
  format: json
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://stock.example.com", cfg.API.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.API.RefreshTimeout)
	assert.Equal(t, DefaultRequestTimeout, cfg.API.RequestTimeout)
	assert.Equal(t, DefaultLoginPath, cfg.API.LoginPath)
	assert.Equal(t, OutputFormatJSON, cfg.Output.Format)
	assert.True(t, cfg.Session.Persist)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "api:\n  endpoint: https://file.example.com\n")
	withEnv(t, map[string]string{
		EnvEndpoint: "https://env.example.com",
		EnvTokenDir: "/tmp/tokens",
		EnvLogLevel: "debug",
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.Endpoint)
	assert.Equal(t, "/tmp/tokens", cfg.Session.TokenDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	withEnv(t, nil)

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "api: [unclosed")
		_, err := LoadConfig(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error loading config")
	})

	t.Run("invalid values", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "api:\n  endpoint: ftp://example.com\nlogging:\n  level: loud\n")
		_, err := LoadConfig(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api.endpoint")
		assert.Contains(t, err.Error(), "logging.level")
	})
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	withEnv(t, nil)
	dir := filepath.Join(t.TempDir(), "nested")

	cfg := GetDefaultConfig()
	cfg.API.Endpoint = "https://stock.example.com"
	cfg.API.RequestTimeout = 90 * time.Second
	require.NoError(t, SaveConfig(dir, cfg))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
