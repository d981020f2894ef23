// Package cli holds the terminal-facing pieces shared by stockdesk commands.
//
// Printer renders API results as a plain kubectl-style table, a bordered
// wide table (go-pretty), JSON, YAML (sigs.k8s.io/yaml) or a go-template
// with the sprig function library. List output keeps the collection envelope
// in structured formats so count and next survive a pipe.
//
// Terminal implements the session layer's Notifier and Navigator: forced
// logouts are printed once, followed by a hint to log in again.
//
// TranslateError maps gateway failures onto errors with actionable guidance
// (ConnectionError, AuthRequiredError, AuthExpiredError, AuthFailedError).
//
// CredentialPrompt reads a username and hidden password with readline, and
// WithSpinner shows progress on stderr for interactive use.
package cli
