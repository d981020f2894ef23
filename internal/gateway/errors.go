package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"stockdesk/internal/session"
)

// TimeoutFailure indicates the server did not answer within the request's
// time bound. Retrying is the caller's decision.
type TimeoutFailure struct {
	Method string
	Path   string
	Cause  error
}

// Error returns a user-facing message.
func (e *TimeoutFailure) Error() string {
	if e.Method == "" {
		return "timed out waiting for the session to be renewed; please try again"
	}
	return fmt.Sprintf("the server took too long to respond to %s %s; please try again", e.Method, e.Path)
}

// Unwrap returns the underlying transport error.
func (e *TimeoutFailure) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is() to match any TimeoutFailure.
func (e *TimeoutFailure) Is(target error) bool {
	_, ok := target.(*TimeoutFailure)
	return ok
}

// NetworkFailure indicates no response was received at all.
type NetworkFailure struct {
	Method string
	Path   string
	Cause  error
}

// Error returns a user-facing message.
func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("could not reach the server for %s %s: check your connection: %v", e.Method, e.Path, e.Cause)
}

// Unwrap returns the underlying transport error.
func (e *NetworkFailure) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is() to match any NetworkFailure.
func (e *NetworkFailure) Is(target error) bool {
	_, ok := target.(*NetworkFailure)
	return ok
}

// SessionExpired is terminal: the session could not be recovered and has been
// cleared. The user has to log in again.
type SessionExpired struct {
	Reason session.EndReason
	Cause  error
}

// Error returns a user-facing message.
func (e *SessionExpired) Error() string {
	switch e.Reason {
	case session.EndReasonRefreshUnavailable:
		return "you are not logged in; please log in to continue"
	case session.EndReasonLogout:
		return "the session was logged out while the request was in flight"
	default:
		return "your session has expired; please log in again"
	}
}

// Unwrap returns the refresh failure, if any.
func (e *SessionExpired) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is() to match any SessionExpired.
func (e *SessionExpired) Is(target error) bool {
	_, ok := target.(*SessionExpired)
	return ok
}

// RemoteRejected is any other non-2xx answer. Detail carries the remote
// payload untouched for the caller to interpret.
type RemoteRejected struct {
	StatusCode int
	Method     string
	Path       string
	Detail     json.RawMessage
	// Message is the remote "detail" string when the payload has one.
	Message string
}

// Error returns a message including the remote detail when available.
func (e *RemoteRejected) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s rejected with status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is allows errors.Is() to match any RemoteRejected.
func (e *RemoteRejected) Is(target error) bool {
	_, ok := target.(*RemoteRejected)
	return ok
}

// ValidationRejected is a 400 carrying field-level detail, passed through for
// form collaborators to map onto fields.
type ValidationRejected struct {
	StatusCode int
	Method     string
	Path       string
	Fields     map[string][]string
	Detail     json.RawMessage
}

// Error lists the rejected fields in a stable order.
func (e *ValidationRejected) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return fmt.Sprintf("%s %s failed validation: %s", e.Method, e.Path, strings.Join(parts, ", "))
}

// Is allows errors.Is() to match any ValidationRejected.
func (e *ValidationRejected) Is(target error) bool {
	_, ok := target.(*ValidationRejected)
	return ok
}
