// Package session owns the persisted credentials and the session lifecycle.
//
// # Components
//
//   - Store: the only writer of credentials. Save, UpdateCredentials, Clear
//     and ReplaceIdentity are the whole write API. The access credential,
//     refresh credential and identity are stored together and a concurrent
//     reader never observes one without the others.
//   - Broadcaster: a subscriber list for "session ended" events.
//   - Lifecycle: clears the store first and broadcasts only when it actually
//     removed a session, so each teardown is announced once.
//   - Watcher: reloads a file-backed store when another process changes it.
//
// # Storage
//
// In file mode the session is kept at:
//
//	~/.config/stockdesk/session/session.json
//
// as three string-keyed blobs (access, refresh, identity) written through a
// temp file and rename, with 0600 permissions in a 0700 directory.
package session
