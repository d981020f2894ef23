package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"stockdesk/internal/session"
	"stockdesk/pkg/logging"
)

// DefaultRefreshTimeout bounds one refresh exchange.
const DefaultRefreshTimeout = 30 * time.Second

// refreshKey is the single singleflight key; there is one session per process.
const refreshKey = "session"

// CoordinatorState is Idle or Refreshing.
type CoordinatorState int

const (
	Idle CoordinatorState = iota
	Refreshing
)

func (s CoordinatorState) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// ExchangeFunc trades a refresh credential for a new pair.
type ExchangeFunc func(ctx context.Context, refreshToken string) (session.CredentialPair, error)

// RefreshCoordinator guarantees at most one refresh exchange is in flight.
// Requests that fault while it runs wait for its outcome and are released in
// the order they joined.
type RefreshCoordinator struct {
	lifecycle *session.Lifecycle
	exchange  ExchangeFunc
	timeout   time.Duration

	group     singleflight.Group
	mu        sync.Mutex
	state     CoordinatorState
	exchanges atomic.Int64
}

// NewRefreshCoordinator creates a coordinator. A zero timeout means
// DefaultRefreshTimeout.
func NewRefreshCoordinator(lifecycle *session.Lifecycle, exchange ExchangeFunc, timeout time.Duration) *RefreshCoordinator {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &RefreshCoordinator{
		lifecycle: lifecycle,
		exchange:  exchange,
		timeout:   timeout,
	}
}

// State reports whether an exchange is currently in flight.
func (c *RefreshCoordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Exchanges returns how many refresh exchanges have been started.
func (c *RefreshCoordinator) Exchanges() int64 {
	return c.exchanges.Load()
}

func (c *RefreshCoordinator) setState(s CoordinatorState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Recover is called after a request sent with staleToken was rejected. If the
// store already holds a different access credential, a refresh completed
// after that request was sent and the caller should just replay. Otherwise it
// joins or starts the exchange.
func (c *RefreshCoordinator) Recover(ctx context.Context, staleToken string) error {
	if current := c.lifecycle.Store().AccessToken(); current != "" && current != staleToken {
		logging.Debug("Refresh", "Credential already rotated, replaying without refresh")
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh joins the in-flight exchange or starts one. The exchange itself is
// detached from ctx: a waiter giving up does not abort it for the others. A
// waiter whose deadline passes gets a TimeoutFailure, one that is cancelled
// gets ctx.Err().
func (c *RefreshCoordinator) Refresh(ctx context.Context) error {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return nil, c.run(detached)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutFailure{Cause: ctx.Err()}
		}
		return ctx.Err()
	}
}

func (c *RefreshCoordinator) run(ctx context.Context) error {
	store := c.lifecycle.Store()

	refreshToken := store.RefreshToken()
	if refreshToken == "" {
		logging.Info("Refresh", "No refresh credential available, ending session")
		c.end(session.EndReasonRefreshUnavailable)
		return &SessionExpired{Reason: session.EndReasonRefreshUnavailable}
	}

	c.setState(Refreshing)
	defer c.setState(Idle)

	n := c.exchanges.Add(1)
	logging.Debug("Refresh", "Starting refresh exchange #%d", n)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pair, err := c.exchange(ctx, refreshToken)
	if err != nil {
		logging.Warn("Refresh", "Refresh exchange failed, ending session: %v", err)
		c.end(session.EndReasonExpired)
		return &SessionExpired{Reason: session.EndReasonExpired, Cause: err}
	}

	// Some servers do not rotate the refresh credential.
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	if err := store.UpdateCredentials(pair); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			// Logged out while the exchange was in flight.
			return &SessionExpired{Reason: session.EndReasonLogout, Cause: err}
		}
		logging.Error("Refresh", err, "Failed to store refreshed credentials")
		c.end(session.EndReasonExpired)
		return &SessionExpired{Reason: session.EndReasonExpired, Cause: fmt.Errorf("failed to store refreshed credentials: %w", err)}
	}

	logging.Info("Refresh", "Refresh exchange #%d completed", n)
	return nil
}

func (c *RefreshCoordinator) end(reason session.EndReason) {
	if _, err := c.lifecycle.End(reason); err != nil {
		logging.Warn("Refresh", "Session teardown incomplete: %v", err)
	}
}
