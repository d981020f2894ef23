package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"

	"stockdesk/internal/gateway"
	"stockdesk/internal/session"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates refused or unreachable connections.
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates the server did not answer in time.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the API could not be reached.
type ConnectionError struct {
	// Endpoint is the API root that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying gateway error.
	Reason error
}

func (e *ConnectionError) Error() string {
	hint := "Check that the API is running and that --endpoint is correct."
	switch e.Type {
	case ConnectionErrorTLS:
		hint = "The server certificate could not be verified."
	case ConnectionErrorTimeout:
		hint = "The server did not answer in time. Please try again."
	case ConnectionErrorDNS:
		hint = "The host name could not be resolved."
	}
	return fmt.Sprintf("%s while contacting %s: %v\n\n%s", e.Type, e.Endpoint, e.Reason, hint)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)
	return ok
}

// AuthRequiredError indicates no usable session is stored.
type AuthRequiredError struct {
	Endpoint string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Not logged in to %s

To log in, run:
  stockdesk auth login

To check the current session:
  stockdesk auth status`, e.Endpoint)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the session ended and could not be renewed.
type AuthExpiredError struct {
	Endpoint string
	Reason   session.EndReason
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	if e.Reason == session.EndReasonLogout {
		return fmt.Sprintf("The session for %s was logged out while the command was running.", e.Endpoint)
	}
	return fmt.Sprintf(`Session expired for %s

To log in again, run:
  stockdesk auth login`, e.Endpoint)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates the credentials were rejected.
type AuthFailedError struct {
	Endpoint string
	Reason   error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Login to %s failed: %v

To retry, run:
  stockdesk auth login`, e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// ReportedError wraps an error the user has already been shown, for example
// through a session notification. Commands return it so the exit code still
// reflects the failure without printing it twice.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ReportedError) Unwrap() error {
	return e.Err
}

// TranslateError maps a gateway error onto the CLI error that carries the
// right guidance. Errors the CLI has nothing to add to are returned unchanged.
func TranslateError(err error, endpoint string) error {
	if err == nil {
		return nil
	}

	var expired *gateway.SessionExpired
	if errors.As(err, &expired) {
		if expired.Reason == session.EndReasonRefreshUnavailable {
			return &AuthRequiredError{Endpoint: endpoint}
		}
		return &AuthExpiredError{Endpoint: endpoint, Reason: expired.Reason}
	}

	var timeout *gateway.TimeoutFailure
	if errors.As(err, &timeout) {
		return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorTimeout, Reason: err}
	}

	var network *gateway.NetworkFailure
	if errors.As(err, &network) {
		return ClassifyConnectionError(err, endpoint)
	}

	return err
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	typ := ConnectionErrorUnknown
	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		typ = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		typ = ConnectionErrorDNS
	case errors.Is(err, &gateway.TimeoutFailure{}):
		typ = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		typ = ConnectionErrorNetwork
	}

	return &ConnectionError{Endpoint: endpoint, Type: typ, Reason: err}
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr x509.HostnameError
	var unknownAuthErr x509.UnknownAuthorityError
	var systemRootsErr x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
