package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/session"
)

// blockingExchange returns pairs only after release is closed.
type blockingExchange struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	err     error
}

func newBlockingExchange() *blockingExchange {
	return &blockingExchange{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingExchange) exchange(ctx context.Context, refreshToken string) (session.CredentialPair, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	if b.err != nil {
		return session.CredentialPair{}, b.err
	}
	return session.CredentialPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func newCoordinatorLifecycle(t *testing.T) *session.Lifecycle {
	t.Helper()
	store, err := session.NewStore(session.StoreConfig{StorageDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, store.Save(expiredPair, testUser))
	return session.NewLifecycle(store, nil)
}

func TestRefreshCoordinator_JoinsInFlightExchange(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	ex := newBlockingExchange()
	coordinator := NewRefreshCoordinator(lifecycle, ex.exchange, time.Second)
	assert.Equal(t, Idle, coordinator.State())

	const n = 4
	results := make(chan error, n)
	go func() { results <- coordinator.Refresh(context.Background()) }()
	<-ex.started
	assert.Equal(t, Refreshing, coordinator.State())

	for i := 1; i < n; i++ {
		go func() { results <- coordinator.Recover(context.Background(), "access-1") }()
	}
	// let the waiters join before releasing
	time.Sleep(20 * time.Millisecond)
	close(ex.release)

	for i := 0; i < n; i++ {
		assert.NoError(t, <-results)
	}
	assert.Equal(t, int64(1), coordinator.Exchanges())
	assert.Equal(t, Idle, coordinator.State())
	assert.Equal(t, "access-2", lifecycle.Store().AccessToken())
}

func TestRefreshCoordinator_StaleFaultSkipsExchange(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	require.NoError(t, lifecycle.Store().UpdateCredentials(session.CredentialPair{AccessToken: "access-2", RefreshToken: "refresh-2"}))

	called := false
	coordinator := NewRefreshCoordinator(lifecycle, func(context.Context, string) (session.CredentialPair, error) {
		called = true
		return session.CredentialPair{}, errors.New("unexpected")
	}, time.Second)

	require.NoError(t, coordinator.Recover(context.Background(), "access-1"))
	assert.False(t, called)
	assert.Equal(t, int64(0), coordinator.Exchanges())
}

func TestRefreshCoordinator_FailureEndsSession(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	var events []session.EndedEvent
	lifecycle.Subscribe(func(e session.EndedEvent) { events = append(events, e) })

	cause := errors.New("refresh endpoint down")
	coordinator := NewRefreshCoordinator(lifecycle, func(context.Context, string) (session.CredentialPair, error) {
		return session.CredentialPair{}, cause
	}, time.Second)

	err := coordinator.Refresh(context.Background())
	var expired *SessionExpired
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, session.EndReasonExpired, expired.Reason)
	assert.ErrorIs(t, err, cause)

	require.Len(t, events, 1)
	assert.Equal(t, session.EndReasonExpired, events[0].Reason)
	assert.Equal(t, session.StateAnonymous, lifecycle.Store().State())
}

func TestRefreshCoordinator_KeepsRefreshCredentialWhenNotRotated(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	coordinator := NewRefreshCoordinator(lifecycle, func(context.Context, string) (session.CredentialPair, error) {
		return session.CredentialPair{AccessToken: "access-2"}, nil
	}, time.Second)

	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.Equal(t, "access-2", lifecycle.Store().AccessToken())
	assert.Equal(t, "refresh-1", lifecycle.Store().RefreshToken())
}

func TestRefreshCoordinator_LogoutDuringExchange(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	ex := newBlockingExchange()
	coordinator := NewRefreshCoordinator(lifecycle, ex.exchange, time.Second)

	var events []session.EndedEvent
	lifecycle.Subscribe(func(e session.EndedEvent) { events = append(events, e) })

	result := make(chan error, 1)
	go func() { result <- coordinator.Refresh(context.Background()) }()
	<-ex.started

	ended, err := lifecycle.End(session.EndReasonLogout)
	require.NoError(t, err)
	require.True(t, ended)
	close(ex.release)

	err = <-result
	var expired *SessionExpired
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, session.EndReasonLogout, expired.Reason)

	assert.Equal(t, "", lifecycle.Store().AccessToken(), "late refresh must not resurrect the session")
	require.Len(t, events, 1)
	assert.Equal(t, session.EndReasonLogout, events[0].Reason)
}

func TestRefreshCoordinator_WaiterCancellationDoesNotAbortExchange(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	ex := newBlockingExchange()
	coordinator := NewRefreshCoordinator(lifecycle, ex.exchange, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- coordinator.Refresh(ctx) }()
	<-ex.started

	second := make(chan error, 1)
	go func() { second <- coordinator.Refresh(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(ex.release)
	assert.NoError(t, <-second)
	assert.Equal(t, "access-2", lifecycle.Store().AccessToken())
	assert.Equal(t, int64(1), coordinator.Exchanges())
}

func TestRefreshCoordinator_WaiterDeadlineIsTimeoutFailure(t *testing.T) {
	lifecycle := newCoordinatorLifecycle(t)
	ex := newBlockingExchange()
	coordinator := NewRefreshCoordinator(lifecycle, ex.exchange, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := coordinator.Refresh(ctx)
	var timeout *TimeoutFailure
	require.ErrorAs(t, err, &timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out waiting for the session to be renewed")

	close(ex.release)
	require.Eventually(t, func() bool {
		return lifecycle.Store().AccessToken() == "access-2"
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshCoordinator_MissingRefreshCredential(t *testing.T) {
	store, err := session.NewStore(session.StoreConfig{StorageDir: t.TempDir()})
	require.NoError(t, err)
	lifecycle := session.NewLifecycle(store, nil)

	coordinator := NewRefreshCoordinator(lifecycle, func(context.Context, string) (session.CredentialPair, error) {
		t.Fatal("exchange must not run without a refresh credential")
		return session.CredentialPair{}, nil
	}, 0)

	err = coordinator.Recover(context.Background(), "")
	var expired *SessionExpired
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, session.EndReasonRefreshUnavailable, expired.Reason)
	assert.Equal(t, int64(0), coordinator.Exchanges())
}
