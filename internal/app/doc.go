// Package app bootstraps stockdesk for a single CLI invocation.
//
// NewApplication loads the configuration (config.LoadConfig), initializes
// logging from it, and wires the session stack bottom-up:
//
//	session.Store         persisted credential pair and identity
//	session.Lifecycle     teardown and the session-ended broadcast
//	gateway.Client        authenticated requests with single-flight refresh
//	console.Session       login, logout, registration, cached identity
//	session.Watcher       optional, follows logouts in other processes
//
// Commands take what they need from Application.Services and call Close when
// they are done. Close never clears stored credentials.
package app
