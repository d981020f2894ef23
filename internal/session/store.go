package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"stockdesk/pkg/logging"
)

// DefaultStorageDir is the default directory, relative to the user's home,
// for the persisted session.
const DefaultStorageDir = ".config/stockdesk/session"

// SessionFileName is the name of the file holding the persisted session.
const SessionFileName = "session.json"

// StoreConfig configures the credential store.
type StoreConfig struct {
	// StorageDir is the directory for the session file.
	// Defaults to ~/.config/stockdesk/session
	StorageDir string

	// FileMode enables file-based persistence. If false, the session lives in
	// memory only and does not survive a restart.
	FileMode bool
}

// persistedSession is the on-disk layout: three string-keyed opaque blobs
// that are always written and removed together.
type persistedSession struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Identity string `json:"identity"`
}

// snapshot is the in-memory view. It is replaced, never mutated in place,
// so a reader holding a copy never sees a half-applied write.
type snapshot struct {
	access   string
	refresh  string
	identity *Identity
}

func (s snapshot) present() bool {
	return s.access != "" || s.refresh != "" || s.identity != nil
}

// Store is the single process-wide owner of persisted credentials.
//
// SECURITY: credential values are never logged. Files are created with 0600
// permissions inside a 0700 directory.
type Store struct {
	mu         sync.RWMutex
	storageDir string
	fileMode   bool
	current    snapshot
}

// NewStore creates a credential store and loads any previously persisted
// session when file mode is enabled.
func NewStore(cfg StoreConfig) (*Store, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	store := &Store{
		storageDir: storageDir,
		fileMode:   cfg.FileMode,
	}

	if cfg.FileMode {
		if err := os.MkdirAll(storageDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create session storage directory: %w", err)
		}
		snap, err := store.readFile()
		if err != nil {
			// A corrupt file is not a session; start anonymous.
			logging.Warn("Session", "Ignoring unreadable session file in %s: %v", storageDir, err)
		} else {
			store.current = snap
		}
	}

	return store, nil
}

// StorageDir returns the directory holding the session file.
func (s *Store) StorageDir() string {
	return s.storageDir
}

// FileMode reports whether the store persists to disk.
func (s *Store) FileMode() bool {
	return s.fileMode
}

// Save persists the credential pair and identity together.
// Concurrent readers observe either the previous session or the new one,
// never a mix of both.
func (s *Store) Save(pair CredentialPair, identity Identity) error {
	if !pair.IsComplete() {
		return errors.New("credential pair is incomplete")
	}

	id := identity
	next := snapshot{
		access:   pair.AccessToken,
		refresh:  pair.RefreshToken,
		identity: &id,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistLocked(next); err != nil {
		logging.Audit("session_store_failed", slog.String("error", err.Error()))
		return err
	}
	s.current = next

	logging.Audit("session_stored",
		slog.String("identity", id.ID),
		slog.String("company", id.CompanyID),
	)
	return nil
}

// UpdateCredentials rotates the credential pair while keeping the identity.
// It fails with ErrNoSession when the session was cleared in the meantime, so
// a refresh that completes after a logout cannot resurrect the session.
func (s *Store) UpdateCredentials(pair CredentialPair) error {
	if !pair.IsComplete() {
		return errors.New("credential pair is incomplete")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.refresh == "" {
		return ErrNoSession
	}

	next := snapshot{
		access:   pair.AccessToken,
		refresh:  pair.RefreshToken,
		identity: s.current.identity,
	}
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.current = next

	logging.Debug("Session", "Rotated stored credentials")
	return nil
}

// Load returns the stored credential pair and identity. If any of the three
// values is missing, the session is treated as absent and both results are nil.
func (s *Store) Load() (*CredentialPair, *Identity) {
	s.mu.RLock()
	snap := s.current
	s.mu.RUnlock()

	if snap.access == "" || snap.refresh == "" || snap.identity == nil {
		return nil, nil
	}

	pair := &CredentialPair{AccessToken: snap.access, RefreshToken: snap.refresh}
	identity := *snap.identity
	return pair, &identity
}

// Identity returns a copy of the cached identity, or nil.
func (s *Store) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.identity == nil {
		return nil
	}
	identity := *s.current.identity
	return &identity
}

// AccessToken returns the current access credential, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.access
}

// RefreshToken returns the current refresh credential, or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.refresh
}

// State derives the session state from the stored values.
func (s *Store) State() State {
	pair, _ := s.Load()
	if pair == nil {
		return StateAnonymous
	}
	return StateAuthenticated
}

// Clear removes all stored values. It is idempotent.
func (s *Store) Clear() error {
	_, err := s.ClearIfPresent()
	return err
}

// ClearIfPresent removes all stored values and reports whether anything was
// there to remove. Only the caller that observes true may announce the
// teardown, which keeps lifecycle broadcasts to one per session.
func (s *Store) ClearIfPresent() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := s.current.present()
	s.current = snapshot{}

	if s.fileMode {
		if err := s.removeFileLocked(); err != nil {
			return present, err
		}
	}

	if present {
		logging.Audit("session_cleared")
	}
	return present, nil
}

// ReplaceIdentity swaps the cached identity and leaves credentials untouched.
// Passing nil clears the identity without invalidating the credentials.
// Replacing the identity of a cleared session fails with ErrNoSession.
func (s *Store) ReplaceIdentity(identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.access == "" && identity != nil {
		return ErrNoSession
	}

	next := snapshot{
		access:  s.current.access,
		refresh: s.current.refresh,
	}
	if identity != nil {
		id := *identity
		next.identity = &id
	}

	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// Reload re-reads the session file after an external change and reports the
// presence of credentials before and after. It is a no-op in memory mode.
func (s *Store) Reload() (hadCredentials, hasCredentials bool, err error) {
	if !s.fileMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		has := s.current.access != ""
		return has, has, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hadCredentials = s.current.access != ""
	snap, err := s.readFile()
	if err != nil {
		return hadCredentials, hadCredentials, err
	}
	s.current = snap
	return hadCredentials, snap.access != "", nil
}

func (s *Store) filePath() string {
	return filepath.Join(s.storageDir, SessionFileName)
}

// persistLocked writes next to disk. An empty snapshot removes the file.
// REQUIRES: s.mu held for writing.
func (s *Store) persistLocked(next snapshot) error {
	if !s.fileMode {
		return nil
	}
	if !next.present() {
		return s.removeFileLocked()
	}

	blob := persistedSession{
		Access:  next.access,
		Refresh: next.refresh,
	}
	if next.identity != nil {
		identityJSON, err := json.Marshal(next.identity)
		if err != nil {
			return fmt.Errorf("failed to marshal identity: %w", err)
		}
		blob.Identity = string(identityJSON)
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to a temp file and rename so other processes never read a
	// partially written session.
	tmp, err := os.CreateTemp(s.storageDir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict session file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath()); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *Store) removeFileLocked() error {
	err := os.Remove(s.filePath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// readFile loads the persisted session. A missing file is an empty session.
func (s *Store) readFile() (snapshot, error) {
	// #nosec G304 -- path is built from the configured storage directory
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return snapshot{}, nil
		}
		return snapshot{}, err
	}

	var blob persistedSession
	if err := json.Unmarshal(data, &blob); err != nil {
		return snapshot{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	snap := snapshot{access: blob.Access, refresh: blob.Refresh}
	if blob.Identity != "" {
		var identity Identity
		if err := json.Unmarshal([]byte(blob.Identity), &identity); err != nil {
			return snapshot{}, fmt.Errorf("failed to unmarshal identity: %w", err)
		}
		snap.identity = &identity
	}
	return snap, nil
}
