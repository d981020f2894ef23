package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// disposition is what the guardian decided for one completed attempt.
type disposition int

const (
	// pass hands the response to the caller.
	pass disposition = iota
	// recoverable means the credential was rejected and a refresh may help.
	recoverable
	// terminal means the credential was rejected on the refresh exchange or
	// on a request that was already replayed once.
	terminal
	// rejected is any other non-2xx answer, including validation failures.
	rejected
)

// classify evaluates a completed attempt. Order matters: transport failures
// are decided by the caller before this runs, then 401 is considered before
// other statuses.
func classify(p *prepared, status int) disposition {
	switch {
	case status == http.StatusUnauthorized && !p.anonymous && (p.refreshExchange || p.retried):
		return terminal
	case status == http.StatusUnauthorized && !p.anonymous:
		return recoverable
	case status >= 200 && status < 300:
		return pass
	default:
		return rejected
	}
}

// transportFailure maps an error from the HTTP client to a timeout or a
// network failure. Cancellation by the caller is returned unchanged.
func transportFailure(ctx context.Context, p *prepared, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if isTimeoutError(err) {
		return &TimeoutFailure{Method: p.method, Path: p.path, Cause: err}
	}
	return &NetworkFailure{Method: p.method, Path: p.path, Cause: err}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

// rejection builds the error for a non-2xx answer that is not a recoverable
// credential fault. Only a 400 with field-level detail yields a
// ValidationRejected.
func rejection(p *prepared, status int, body []byte) error {
	detail := json.RawMessage(nil)
	if len(body) > 0 && json.Valid(body) {
		detail = json.RawMessage(body)
	}

	if status == http.StatusBadRequest {
		if fields := fieldErrors(body); len(fields) > 0 {
			return &ValidationRejected{
				StatusCode: status,
				Method:     p.method,
				Path:       p.path,
				Fields:     fields,
				Detail:     detail,
			}
		}
	}

	return &RemoteRejected{
		StatusCode: status,
		Method:     p.method,
		Path:       p.path,
		Detail:     detail,
		Message:    detailMessage(body),
	}
}

// fieldErrors extracts {"field": ["message", ...]} pairs. Keys that carry a
// request-level message are not fields.
var nonFieldKeys = map[string]bool{
	"detail":  true,
	"code":    true,
	"message": true,
	"error":   true,
}

func fieldErrors(body []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	fields := make(map[string][]string)
	for name, value := range raw {
		if nonFieldKeys[name] {
			continue
		}
		var messages []string
		if err := json.Unmarshal(value, &messages); err == nil && len(messages) > 0 {
			fields[name] = messages
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil && single != "" {
			fields[name] = []string{single}
		}
	}
	return fields
}

func detailMessage(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Detail != "":
		return payload.Detail
	case payload.Message != "":
		return payload.Message
	default:
		return payload.Error
	}
}
