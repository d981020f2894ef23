package app

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/config"
	"stockdesk/internal/console"
	"stockdesk/internal/session"
	"stockdesk/internal/testing/mock"
)

func newTestConfig(t *testing.T, endpoint string) *Config {
	t.Helper()

	sc := config.GetDefaultConfig()
	sc.API.Endpoint = endpoint
	sc.Session.Watch = false

	cfg := NewConfig(false, false, t.TempDir())
	cfg.StockdeskConfig = &sc
	cfg.LogOutput = &bytes.Buffer{}
	return cfg
}

func TestNewApplication_PersistsSessionUnderConfigPath(t *testing.T) {
	api := mock.NewAPIServer(mock.APIServerConfig{})
	require.NoError(t, api.AddUser("ada", "correct-horse", map[string]any{"first_name": "Ada"}))
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	cfg := newTestConfig(t, server.URL)
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	services := application.Services()
	assert.Equal(t, session.StateAnonymous, services.Session.Status())

	ok, err := services.Session.Login(context.Background(), console.Credentials{Identifier: "ada", Secret: "correct-horse"})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = os.Stat(filepath.Join(cfg.ConfigPath, sessionDirName, session.SessionFileName))
	require.NoError(t, err)

	// A second invocation sees the persisted session.
	again, err := NewApplication(newTestConfigAt(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })
	assert.Equal(t, session.StateAuthenticated, again.Services().Session.Status())
	require.NotNil(t, again.Services().Session.CurrentIdentity())
	assert.Equal(t, "Ada", again.Services().Session.CurrentIdentity().DisplayName)
}

func newTestConfigAt(prev *Config) *Config {
	sc := *prev.StockdeskConfig
	cfg := NewConfig(false, false, prev.ConfigPath)
	cfg.StockdeskConfig = &sc
	cfg.LogOutput = &bytes.Buffer{}
	return cfg
}

func TestNewApplication_InMemorySession(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost:8000")
	cfg.StockdeskConfig.Session.Persist = false

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer application.Close()

	assert.False(t, application.Services().Store.FileMode())
	assert.Nil(t, application.Services().Watcher)
}

func TestNewApplication_WatchOverride(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost:8000")
	watch := true
	cfg.Watch = &watch

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer application.Close()

	require.NotNil(t, application.Services().Watcher)
	assert.True(t, application.Services().Watcher.IsRunning())
}

func TestNewApplication_Errors(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		cfg := newTestConfig(t, "http://localhost:8000")
		cfg.StockdeskConfig.Logging.Level = "loud"
		_, err := NewApplication(cfg)
		assert.Error(t, err)
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		cfg := newTestConfig(t, "ftp://localhost")
		_, err := NewApplication(cfg)
		assert.Error(t, err)
	})

	t.Run("invalid config file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api: [broken"), 0600))
		_, err := NewApplication(NewConfig(false, false, dir))
		assert.Error(t, err)
	})
}

func TestTokenDir(t *testing.T) {
	assert.Equal(t, "/explicit", tokenDir("/cfg", config.SessionConfig{TokenDir: "/explicit"}))
	assert.Equal(t, filepath.Join("/cfg", "session"), tokenDir("/cfg", config.SessionConfig{}))
	assert.Equal(t, "", tokenDir("", config.SessionConfig{}))
}
