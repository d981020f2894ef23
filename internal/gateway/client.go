package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockdesk/internal/session"
	"stockdesk/pkg/logging"
)

const (
	// DefaultRequestTimeout bounds every outbound call.
	DefaultRequestTimeout = 60 * time.Second
	// DefaultRefreshPath is the refresh exchange endpoint.
	DefaultRefreshPath = "/api/auth/refresh/"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://stock.example.com
	BaseURL string
	// RefreshPath is the refresh exchange endpoint relative to BaseURL.
	RefreshPath string
	// RequestTimeout bounds each outbound call, including a replay.
	RequestTimeout time.Duration
	// RefreshTimeout bounds the refresh exchange.
	RefreshTimeout time.Duration
	// UserAgent is sent on every request when set.
	UserAgent string
	// Transport is the underlying round tripper. Defaults to
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is the single request pipeline to the remote API. Every call is
// stamped by the Authenticator, evaluated by the guardian, and on a rejected
// credential recovered through the RefreshCoordinator and replayed once.
type Client struct {
	baseURL     *url.URL
	refreshPath string
	userAgent   string

	lifecycle   *session.Lifecycle
	httpClient  *http.Client
	coordinator *RefreshCoordinator
}

// NewClient creates a client bound to lifecycle's credential store.
func NewClient(cfg Config, lifecycle *session.Lifecycle) (*Client, error) {
	if lifecycle == nil {
		return nil, fmt.Errorf("session lifecycle is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	refreshPath := cfg.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	c := &Client{
		baseURL:     base,
		refreshPath: refreshPath,
		userAgent:   cfg.UserAgent,
		lifecycle:   lifecycle,
		httpClient: &http.Client{
			Transport: NewAuthenticator(lifecycle.Store(), cfg.Transport),
			Timeout:   requestTimeout,
		},
	}
	c.coordinator = NewRefreshCoordinator(lifecycle, c.exchange, cfg.RefreshTimeout)
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Lifecycle returns the session lifecycle the client tears down on failure.
func (c *Client) Lifecycle() *session.Lifecycle {
	return c.lifecycle
}

// Coordinator returns the refresh coordinator.
func (c *Client) Coordinator() *RefreshCoordinator {
	return c.coordinator
}

// Issue sends req and returns the 2xx response, or one of TimeoutFailure,
// NetworkFailure, SessionExpired, ValidationRejected or RemoteRejected.
func (c *Client) Issue(ctx context.Context, req *Request) (*Response, error) {
	p, err := c.prepare(req)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, p)
}

// Get is shorthand for a GET Issue.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Issue(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Refresh forces a refresh exchange, joining one that is already running.
func (c *Client) Refresh(ctx context.Context) error {
	return c.coordinator.Refresh(ctx)
}

func (c *Client) do(ctx context.Context, p *prepared) (*Response, error) {
	status, header, body, sentToken, err := c.send(ctx, p)
	if err != nil {
		return nil, transportFailure(ctx, p, err)
	}

	switch classify(p, status) {
	case pass:
		return &Response{StatusCode: status, Header: header, Body: body, RequestID: p.requestID}, nil

	case terminal:
		logging.Info("Gateway", "Credential rejected on %s %s after recovery, ending session", p.method, p.path)
		if _, err := c.lifecycle.End(session.EndReasonExpired); err != nil {
			logging.Warn("Gateway", "Session teardown incomplete: %v", err)
		}
		return nil, &SessionExpired{Reason: session.EndReasonExpired}

	case recoverable:
		logging.Debug("Gateway", "Credential rejected on %s %s, recovering", p.method, p.path)
		if err := c.coordinator.Recover(ctx, sentToken); err != nil {
			var timeout *TimeoutFailure
			if errors.As(err, &timeout) && timeout.Method == "" {
				return nil, &TimeoutFailure{Method: p.method, Path: p.path, Cause: timeout.Cause}
			}
			return nil, err
		}
		p.retried = true
		return c.do(ctx, p)

	default:
		return nil, rejection(p, status, body)
	}
}

// send performs one attempt and reads the body in full.
func (c *Client) send(ctx context.Context, p *prepared) (int, http.Header, []byte, string, error) {
	state := &attempt{anonymous: p.anonymous || p.refreshExchange}

	httpReq, err := p.httpRequest(withAttempt(ctx, state))
	if err != nil {
		return 0, nil, nil, "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, nil, state.token(), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, nil, state.token(), err
	}

	logging.Debug("Gateway", "%s %s -> %d (request %s)", p.method, p.path, resp.StatusCode, p.requestID)
	return resp.StatusCode, resp.Header, body, state.token(), nil
}

// refreshRequest is the refresh exchange payload.
type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// refreshResponse accepts both the short and the OAuth2 field names.
type refreshResponse struct {
	Access       string `json:"access"`
	Refresh      string `json:"refresh"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// exchange presents the refresh credential to the refresh endpoint. It runs
// through the same pipeline marked as the refresh exchange, so a 401 on it is
// terminal and never re-enters the coordinator.
func (c *Client) exchange(ctx context.Context, refreshToken string) (session.CredentialPair, error) {
	p, err := c.prepare(&Request{
		Method: http.MethodPost,
		Path:   c.refreshPath,
		Body:   refreshRequest{Refresh: refreshToken},
	})
	if err != nil {
		return session.CredentialPair{}, err
	}
	p.refreshExchange = true

	resp, err := c.do(ctx, p)
	if err != nil {
		return session.CredentialPair{}, err
	}

	var payload refreshResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return session.CredentialPair{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	pair := session.CredentialPair{
		AccessToken:  firstNonEmpty(payload.Access, payload.AccessToken),
		RefreshToken: firstNonEmpty(payload.Refresh, payload.RefreshToken),
	}
	if pair.AccessToken == "" {
		return session.CredentialPair{}, fmt.Errorf("refresh response carries no access credential")
	}
	return pair, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
