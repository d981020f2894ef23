package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stockdesk/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last change to the
// session file before reloading it.
const DefaultDebounceInterval = 200 * time.Millisecond

// DefaultPollInterval is the fallback polling interval when fsnotify is not
// available.
const DefaultPollInterval = 2 * time.Second

// WatcherConfig configures the session file watcher.
type WatcherConfig struct {
	// Debounce is the quiet period before a reload. Defaults to DefaultDebounceInterval.
	Debounce time.Duration

	// PollInterval is used when fsnotify cannot watch the directory.
	PollInterval time.Duration

	// OnReload is called after each reload with the credential presence
	// before and after. Optional.
	OnReload func(hadCredentials, hasCredentials bool)
}

// Watcher keeps a file-backed store in sync with changes made by other
// processes, such as "stockdesk auth logout" in a second terminal. Removal of
// the session by another process ends the session here with EndReasonExternal.
type Watcher struct {
	mu sync.Mutex

	lifecycle *Lifecycle
	config    WatcherConfig

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	lastModTime time.Time
	lastExists  bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a watcher for the lifecycle's store.
func NewWatcher(lifecycle *Lifecycle, config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounceInterval
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		lifecycle: lifecycle,
		config:    config,
	}
}

// Start begins watching. It is a no-op for in-memory stores.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || !w.lifecycle.store.FileMode() {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true
	dir := w.lifecycle.store.StorageDir()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("Session", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	if err := watcher.Add(dir); err != nil {
		logging.Warn("Session", "Failed to watch directory %s, falling back to polling: %v", dir, err)
		watcher.Close()
		go w.pollForChanges()
		return nil
	}
	w.fsWatcher = watcher

	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Debug("Session", "Watching %s for session changes", dir)
	return nil
}

// processEvents handles fsnotify events. The channels are passed in so Stop
// can clear w.fsWatcher without racing with this loop.
func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != SessionFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.triggerReloadDebounced()

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("Session", err, "fsnotify error")
		}
	}
}

func (w *Watcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if running {
			w.reload()
		}
	})
}

func (w *Watcher) reload() {
	had, has, err := w.lifecycle.store.Reload()
	if err != nil {
		logging.Warn("Session", "Failed to reload session file: %v", err)
		return
	}

	switch {
	case had && !has:
		logging.Info("Session", "Session was removed by another process")
		w.lifecycle.announce(EndReasonExternal)
	case !had && has:
		logging.Info("Session", "Picked up session stored by another process")
	}

	if w.config.OnReload != nil {
		w.config.OnReload(had, has)
	}
}

func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.checkForChanges()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.checkForChanges() {
				w.triggerReloadDebounced()
			}
		}
	}
}

// checkForChanges compares the session file's existence and modification
// time with the last observation.
func (w *Watcher) checkForChanges() bool {
	path := filepath.Join(w.lifecycle.store.StorageDir(), SessionFileName)

	exists := true
	var modTime time.Time
	info, err := os.Stat(path)
	if err != nil {
		exists = false
	} else {
		modTime = info.ModTime()
	}

	changed := exists != w.lastExists || !modTime.Equal(w.lastModTime)
	w.lastExists = exists
	w.lastModTime = modTime
	return changed
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("Session", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}
	return nil
}

// IsRunning returns whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
