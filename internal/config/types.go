package config

import "time"

// StockdeskConfig is the top-level configuration structure for stockdesk.
type StockdeskConfig struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
}

// APIConfig describes the remote stock API.
type APIConfig struct {
	Endpoint       string        `yaml:"endpoint"`                 // API root URL, e.g. https://stock.example.com
	LoginPath      string        `yaml:"loginPath,omitempty"`      // Credential exchange endpoint
	RefreshPath    string        `yaml:"refreshPath,omitempty"`    // Refresh exchange endpoint
	RegisterPath   string        `yaml:"registerPath,omitempty"`   // Account registration endpoint
	MePath         string        `yaml:"mePath,omitempty"`         // Profile endpoint
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"` // Upper bound for every call (default: 60s)
	RefreshTimeout time.Duration `yaml:"refreshTimeout,omitempty"` // Upper bound for the refresh exchange (default: 30s)
}

// SessionConfig controls credential persistence.
type SessionConfig struct {
	// TokenDir holds session.json. Empty means ~/.config/stockdesk/session.
	TokenDir string `yaml:"tokenDir,omitempty"`
	// Persist keeps the session across runs. When false it lives in memory.
	Persist bool `yaml:"persist"`
	// Watch reloads the session when another process changes it.
	Watch bool `yaml:"watch,omitempty"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format,omitempty"` // text or json (default: text)
}

// OutputConfig controls how records are printed.
type OutputConfig struct {
	// Format is table, wide, json, yaml or go-template=<template>.
	Format string `yaml:"format,omitempty"`
}

const (
	OutputFormatTable      = "table"
	OutputFormatWide       = "wide"
	OutputFormatJSON       = "json"
	OutputFormatYAML       = "yaml"
	OutputFormatGoTemplate = "go-template"
)
