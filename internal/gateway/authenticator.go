package gateway

import (
	"context"
	"net/http"
	"sync"

	"stockdesk/internal/session"
)

// attempt carries per-send state between the client and the authenticator.
// The authenticator records which access credential it attached so the
// guardian can tell a stale fault from a fresh one.
type attempt struct {
	anonymous bool

	mu        sync.Mutex
	sentToken string
}

func (a *attempt) setSentToken(token string) {
	a.mu.Lock()
	a.sentToken = token
	a.mu.Unlock()
}

func (a *attempt) token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sentToken
}

type attemptKey struct{}

func withAttempt(ctx context.Context, a *attempt) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}

func attemptFrom(ctx context.Context) *attempt {
	a, _ := ctx.Value(attemptKey{}).(*attempt)
	return a
}

// Authenticator is the pre-send hook. It reads the current access credential
// from the store at send time and attaches it as a bearer token. The store is
// never modified here.
type Authenticator struct {
	store *session.Store
	base  http.RoundTripper
}

// NewAuthenticator wraps base (http.DefaultTransport when nil).
func NewAuthenticator(store *session.Store, base http.RoundTripper) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Authenticator{store: store, base: base}
}

// RoundTrip implements http.RoundTripper.
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	state := attemptFrom(req.Context())
	if state != nil && state.anonymous {
		return a.base.RoundTrip(req)
	}

	token := a.store.AccessToken()
	if token == "" {
		return a.base.RoundTrip(req)
	}

	// RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	session.CredentialPair{AccessToken: token}.OAuth2Token().SetAuthHeader(clone)
	if state != nil {
		state.setSentToken(token)
	}
	return a.base.RoundTrip(clone)
}
