package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id. A replay after a
// refresh keeps the id of the original request.
const RequestIDHeader = "X-Request-ID"

// Request describes one logical call to the remote API.
type Request struct {
	Method string
	// Path is relative to the API base URL, or an absolute URL such as a
	// pagination link returned by the server.
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// Anonymous requests are sent without the access credential, and a 401 on
	// them is an ordinary rejection rather than an expired session. Login and
	// registration use this.
	Anonymous bool
}

// Response is a completed 2xx answer with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("response body is empty")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// prepared is the replayable form of a Request. The body is encoded once so
// the retry after a refresh sends exactly the same bytes.
type prepared struct {
	method    string
	url       string
	path      string
	body      []byte
	header    http.Header
	requestID string
	anonymous bool

	// refreshExchange marks the refresh call itself; a 401 on it is terminal.
	refreshExchange bool
	// retried is set the first time the request re-enters the pipeline after
	// a refresh. A request is replayed at most once.
	retried bool
}

func (c *Client) prepare(req *Request) (*prepared, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	p := &prepared{
		method:    method,
		url:       target,
		path:      req.Path,
		header:    http.Header{},
		requestID: uuid.NewString(),
		anonymous: req.Anonymous,
	}

	for key, values := range req.Header {
		for _, v := range values {
			p.header.Add(key, v)
		}
	}
	p.header.Set("Accept", "application/json")
	if c.userAgent != "" {
		p.header.Set("User-Agent", c.userAgent)
	}

	if req.Body != nil {
		switch body := req.Body.(type) {
		case []byte:
			p.body = body
		case json.RawMessage:
			p.body = body
		default:
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}
			p.body = encoded
		}
		p.header.Set("Content-Type", "application/json")
	}

	return p, nil
}

// resolve joins path onto the base URL. Trailing slashes are preserved since
// the remote API routes on them.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid request URL %q: %w", path, err)
		}
		if len(query) > 0 {
			merged := u.Query()
			for key, values := range query {
				merged[key] = values
			}
			u.RawQuery = merged.Encode()
		}
		return u.String(), nil
	}

	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// httpRequest builds a fresh *http.Request for one attempt.
func (p *prepared) httpRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, p.method, p.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = p.header.Clone()
	httpReq.Header.Set(RequestIDHeader, p.requestID)
	return httpReq, nil
}
