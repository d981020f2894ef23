// Package console is the session layer the application talks to: login,
// logout, registration, the cached identity, and the side effects of a
// forced logout (one notification and one navigation to the login route).
//
// The user-facing surfaces (terminal prompts, notifications) are supplied as
// Notifier and Navigator implementations.
package console
