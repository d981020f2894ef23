// Package logging provides structured, subsystem-tagged logging for stockdesk.
//
// The package is a thin layer over Go's log/slog. Every record carries a
// subsystem attribute so output can be filtered by component.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Session", "Loaded session from %s", dir)
//	logging.Debug("Gateway", "Replaying %s %s after refresh", method, path)
//	logging.Error("Refresh", err, "Refresh exchange failed")
//
// JSON output is available through Init:
//
//	logging.Init(logging.LevelDebug, os.Stderr, logging.FormatJSON)
//
// # Subsystems
//
//   - **Config**: configuration loading and validation
//   - **Session**: credential store, watcher and lifecycle broadcasts
//   - **Gateway**: request authentication and response classification
//   - **Refresh**: the single-flight refresh coordinator
//   - **Console**: login, logout and profile operations
//
// # Audit Logging
//
// Security-relevant events (credentials stored or cleared, forced logout) are
// emitted through Audit at INFO level with a "SECURITY_AUDIT:" prefix:
//
//	logging.Audit("session_cleared", slog.String("reason", "expired"))
//
// Credential values are never logged, only metadata.
package logging
