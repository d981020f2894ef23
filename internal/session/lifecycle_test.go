package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SubscribeAndUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	var order []string
	unsubA := b.Subscribe(func(EndedEvent) { order = append(order, "a") })
	b.Subscribe(func(EndedEvent) { order = append(order, "b") })
	assert.Equal(t, 2, b.Len())

	b.Broadcast(EndedEvent{Reason: EndReasonLogout})
	assert.Equal(t, []string{"a", "b"}, order)

	unsubA()
	unsubA() // idempotent
	assert.Equal(t, 1, b.Len())

	order = nil
	b.Broadcast(EndedEvent{Reason: EndReasonLogout})
	assert.Equal(t, []string{"b"}, order)
}

func TestBroadcaster_HandlerMayUnsubscribeDuringDelivery(t *testing.T) {
	b := NewBroadcaster()

	var calls int
	var unsub Unsubscribe
	unsub = b.Subscribe(func(EndedEvent) {
		calls++
		unsub()
	})

	b.Broadcast(EndedEvent{Reason: EndReasonExpired})
	b.Broadcast(EndedEvent{Reason: EndReasonExpired})
	assert.Equal(t, 1, calls)
}

func TestLifecycle_EndBroadcastsOncePerSession(t *testing.T) {
	store := newMemoryStore(t)
	lifecycle := NewLifecycle(store, NewBroadcaster())

	var events []EndedEvent
	lifecycle.Subscribe(func(e EndedEvent) { events = append(events, e) })

	require.NoError(t, store.Save(testPair, testIdentity))

	ended, err := lifecycle.End(EndReasonLogout)
	require.NoError(t, err)
	assert.True(t, ended)

	ended, err = lifecycle.End(EndReasonLogout)
	require.NoError(t, err)
	assert.False(t, ended)

	require.Len(t, events, 1)
	assert.Equal(t, EndReasonLogout, events[0].Reason)
	assert.False(t, events[0].At.IsZero())
	assert.Equal(t, StateAnonymous, store.State())
}

func TestLifecycle_ConcurrentEndBroadcastsOnce(t *testing.T) {
	store := newMemoryStore(t)
	lifecycle := NewLifecycle(store, nil)
	require.NoError(t, store.Save(testPair, testIdentity))

	var broadcasts int32
	lifecycle.Subscribe(func(EndedEvent) { atomic.AddInt32(&broadcasts, 1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = lifecycle.End(EndReasonExpired)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&broadcasts))
}

func TestEndReason_Forced(t *testing.T) {
	assert.False(t, EndReasonLogout.Forced())
	assert.True(t, EndReasonExpired.Forced())
	assert.True(t, EndReasonRefreshUnavailable.Forced())
	assert.True(t, EndReasonExternal.Forced())
}

func TestWatcher_ExternalLogoutEndsSession(t *testing.T) {
	dir := t.TempDir()
	local := newFileStore(t, dir)
	other := newFileStore(t, dir)
	require.NoError(t, local.Save(testPair, testIdentity))

	lifecycle := NewLifecycle(local, NewBroadcaster())
	events := make(chan EndedEvent, 4)
	lifecycle.Subscribe(func(e EndedEvent) { events <- e })

	watcher := NewWatcher(lifecycle, WatcherConfig{
		Debounce:     20 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
	})
	require.NoError(t, watcher.Start())
	defer watcher.Stop()
	assert.True(t, watcher.IsRunning())

	// Reload the other handle so it sees the session before clearing it.
	_, _, err := other.Reload()
	require.NoError(t, err)
	require.NoError(t, other.Clear())

	select {
	case e := <-events:
		assert.Equal(t, EndReasonExternal, e.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("expected session ended event after external logout")
	}
	assert.Equal(t, StateAnonymous, local.State())

	require.NoError(t, watcher.Stop())
	assert.False(t, watcher.IsRunning())
}

func TestWatcher_InMemoryStoreIsNoop(t *testing.T) {
	lifecycle := NewLifecycle(newMemoryStore(t), nil)
	watcher := NewWatcher(lifecycle, WatcherConfig{})
	require.NoError(t, watcher.Start())
	assert.False(t, watcher.IsRunning())
	require.NoError(t, watcher.Stop())
}
