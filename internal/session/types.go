package session

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned by write operations that require an existing
// session, such as replacing the identity or rotating credentials after the
// session was torn down.
var ErrNoSession = errors.New("no active session")

// CredentialPair holds the access and refresh credentials.
// Both values are opaque; this package never inspects or decodes them.
type CredentialPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsComplete reports whether both credentials are present.
func (p CredentialPair) IsComplete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// OAuth2Token converts the pair into a bearer oauth2.Token.
func (p CredentialPair) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
	}
}

// Identity is the cached snapshot of the authenticated principal.
// It is replaced wholesale, never merged field by field.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// State is the derived, non-persisted view of the session.
type State int

const (
	// StateAnonymous means no complete session is stored.
	StateAnonymous State = iota
	// StateAuthenticated means a credential pair and identity are present and
	// have not been proven invalid.
	StateAuthenticated
)

// String returns the string representation of the session state.
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// EndReason explains why a session was torn down.
type EndReason string

const (
	// EndReasonLogout is an explicit logout by the user.
	EndReasonLogout EndReason = "logout"
	// EndReasonExpired means the refresh exchange failed or a retried
	// request was rejected again.
	EndReasonExpired EndReason = "expired"
	// EndReasonRefreshUnavailable means no refresh credential was stored
	// when one was needed.
	EndReasonRefreshUnavailable EndReason = "refresh_unavailable"
	// EndReasonExternal means another process removed the stored session.
	EndReasonExternal EndReason = "external"
)

// Forced reports whether the teardown happened without the user asking for it.
func (r EndReason) Forced() bool {
	return r != EndReasonLogout
}

// EndedEvent is delivered to lifecycle subscribers when a session ends.
type EndedEvent struct {
	Reason EndReason
	At     time.Time
}
