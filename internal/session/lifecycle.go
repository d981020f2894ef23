package session

import (
	"log/slog"
	"time"

	"stockdesk/pkg/logging"
)

// Lifecycle couples the credential store with the broadcaster and owns the
// teardown rule: the store is transitioned to empty first, and only the
// caller that actually removed a session broadcasts. Two concurrent failures
// therefore produce one event.
type Lifecycle struct {
	store       *Store
	broadcaster *Broadcaster
	now         func() time.Time
}

// NewLifecycle creates a lifecycle over the given store and broadcaster.
func NewLifecycle(store *Store, broadcaster *Broadcaster) *Lifecycle {
	if broadcaster == nil {
		broadcaster = NewBroadcaster()
	}
	return &Lifecycle{
		store:       store,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Store returns the underlying credential store.
func (l *Lifecycle) Store() *Store {
	return l.store
}

// Subscribe registers a teardown handler.
func (l *Lifecycle) Subscribe(handler Handler) Unsubscribe {
	return l.broadcaster.Subscribe(handler)
}

// End tears the session down for the given reason. It reports whether this
// call ended a live session (and therefore broadcast). The broadcast happens
// even if removing the file failed, because the in-memory session is gone.
func (l *Lifecycle) End(reason EndReason) (bool, error) {
	removed, err := l.store.ClearIfPresent()
	if err != nil {
		logging.Error("Session", err, "Failed to remove persisted session")
	}
	if removed {
		l.announce(reason)
	}
	return removed, err
}

// announce broadcasts a teardown that has already been applied to the store.
func (l *Lifecycle) announce(reason EndReason) {
	logging.Audit("session_ended", slog.String("reason", string(reason)))
	l.broadcaster.Broadcast(EndedEvent{Reason: reason, At: l.now()})
}
