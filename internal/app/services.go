package app

import (
	"fmt"
	"path/filepath"

	"stockdesk/internal/config"
	"stockdesk/internal/console"
	"stockdesk/internal/gateway"
	"stockdesk/internal/session"
	"stockdesk/pkg/logging"
)

const sessionDirName = "session"

// Services holds the session stack, built bottom-up:
//  1. Store: the single owner of persisted credentials
//  2. Lifecycle: teardown plus the session-ended broadcaster
//  3. Client: the authenticated gateway with single-flight refresh
//  4. Session: login, logout, registration and the cached identity
//  5. Watcher: optional, follows changes made by other processes
type Services struct {
	Store     *session.Store
	Lifecycle *session.Lifecycle
	Client    *gateway.Client
	Session   *console.Session
	Watcher   *session.Watcher
}

// InitializeServices wires the session stack from cfg.StockdeskConfig.
func InitializeServices(cfg *Config) (*Services, error) {
	sc := cfg.StockdeskConfig

	store, err := session.NewStore(session.StoreConfig{
		StorageDir: tokenDir(cfg.ConfigPath, sc.Session),
		FileMode:   sc.Session.Persist,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	lifecycle := session.NewLifecycle(store, session.NewBroadcaster())

	client, err := gateway.NewClient(gateway.Config{
		BaseURL:        sc.API.Endpoint,
		RefreshPath:    sc.API.RefreshPath,
		RequestTimeout: sc.API.RequestTimeout,
		RefreshTimeout: sc.API.RefreshTimeout,
		UserAgent:      cfg.UserAgent,
	}, lifecycle)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	sess := console.New(client, console.Options{
		Endpoints: console.Endpoints{
			Login:    sc.API.LoginPath,
			Register: sc.API.RegisterPath,
			Me:       sc.API.MePath,
		},
		Notifier:  cfg.Notifier,
		Navigator: cfg.Navigator,
	})

	services := &Services{
		Store:     store,
		Lifecycle: lifecycle,
		Client:    client,
		Session:   sess,
	}

	watch := sc.Session.Watch
	if cfg.Watch != nil {
		watch = *cfg.Watch
	}
	if watch && store.FileMode() {
		services.Watcher = session.NewWatcher(lifecycle, session.WatcherConfig{})
		if err := services.Watcher.Start(); err != nil {
			// The session still works, it just won't follow other processes.
			logging.Warn("Bootstrap", "Failed to watch session directory: %v", err)
			services.Watcher = nil
		}
	}

	logging.Debug("Bootstrap", "Session stack ready (persist=%t, watch=%t, state=%s)",
		store.FileMode(), services.Watcher != nil, store.State())
	return services, nil
}

// Close detaches the session layer and stops the watcher.
func (s *Services) Close() error {
	s.Session.Close()
	if s.Watcher != nil {
		return s.Watcher.Stop()
	}
	return nil
}

func tokenDir(configPath string, sc config.SessionConfig) string {
	if sc.TokenDir != "" {
		return sc.TokenDir
	}
	if configPath == "" {
		return ""
	}
	return filepath.Join(configPath, sessionDirName)
}
