package session

import (
	"sync"
)

// Handler receives session teardown notifications. Handlers must be
// idempotent and must not block for long; they run on the goroutine that
// tore the session down.
type Handler func(EndedEvent)

// Unsubscribe removes a handler. Calling it more than once is safe.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Broadcaster fans a "session ended" event out to its subscribers.
// It is owned by the session layer; it does not decide when a session ends,
// it only delivers the event to whoever listens.
type Broadcaster struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Broadcaster) Subscribe(handler Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subs {
				if sub.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Broadcast delivers the event to a snapshot of the current subscribers in
// subscription order. Handlers may subscribe or unsubscribe while running.
func (b *Broadcaster) Broadcast(event EndedEvent) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

// Len returns the number of registered subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
