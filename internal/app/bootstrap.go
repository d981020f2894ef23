package app

import (
	"fmt"
	"io"
	"os"

	"stockdesk/internal/config"
	"stockdesk/pkg/logging"
)

// Application owns the wired session stack for one CLI invocation.
//
// Initialization happens in two phases:
//  1. Bootstrap: load configuration, initialize logging
//  2. Services: open the credential store and build the gateway client and
//     session layer on top of it
//
// Example usage:
//
//	application, err := app.NewApplication(app.NewConfig(false, false, configPath))
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//	ok, err := application.Services().Session.Login(ctx, creds)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration, configures logging and initializes the
// services. It returns an error when configuration is invalid or the
// credential store cannot be opened.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.StockdeskConfig == nil {
		loaded, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load stockdesk configuration from path %s: %w", cfg.ConfigPath, err)
		}
		cfg.StockdeskConfig = &loaded
	}

	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	logging.Debug("Bootstrap", "Using API endpoint %s", cfg.StockdeskConfig.API.Endpoint)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Config returns the resolved configuration.
func (a *Application) Config() config.StockdeskConfig {
	return *a.config.StockdeskConfig
}

// Services returns the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Close stops background work. Stored credentials are left untouched.
func (a *Application) Close() error {
	return a.services.Close()
}

func initLogging(cfg *Config) error {
	level, err := logging.ParseLevel(cfg.StockdeskConfig.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	} else if cfg.Quiet && level < logging.LevelWarn {
		level = logging.LevelWarn
	}

	var output io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		output = cfg.LogOutput
	}
	logging.Init(level, output, logging.Format(cfg.StockdeskConfig.Logging.Format))
	return nil
}
