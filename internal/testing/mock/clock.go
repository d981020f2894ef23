package mock

import (
	"sync"
	"time"
)

// Clock is the time source the mock API uses to stamp and check token
// lifetimes.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ManualClock only moves when a test moves it, so access and refresh
// credentials can be expired without sleeping.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock starts a clock at start, or at the current time when start
// is zero.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d. A negative d moves it back.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// PastExpiry advances the clock just beyond lifetime measured from issued,
// the instant a credential issued at issued stops being accepted.
func (c *ManualClock) PastExpiry(issued time.Time, lifetime time.Duration) {
	c.Set(issued.Add(lifetime).Add(time.Second))
}
