package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/hejijunhao/oktify/internal/model"
)

const maxErrorBody = 512

// Client is an HTTP client with token auth and a base URL. It performs exactly
// one attempt per call; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	token      string
	scheme     string
	userAgent  string
	httpClient *http.Client
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Next       string // rel="next" link target, if any
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string        // first 512 bytes
	RetryAfter time.Duration // server-indicated wait for 429s, 0 when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps the status to an error kind from package model.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return model.ErrAuthentication
	case e.StatusCode == http.StatusTooManyRequests:
		return model.ErrRateLimited
	case e.StatusCode >= 500:
		return model.ErrTransport
	default:
		return model.ErrMalformedQuery
	}
}

// TransportError wraps a failure to obtain any HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() []error { return []error{model.ErrTransport, e.Err} }

// Retryable reports whether err may succeed when the same request is repeated.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithAuthScheme sets the Authorization scheme. Default: "Bearer".
// Okta API tokens use "SSWS".
func WithAuthScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client with token auth and a base URL. Responses are
// transparently decompressed.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		scheme:  "Bearer",
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL joins path and query onto the client's base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get sends a single GET request. rawURL may be absolute (e.g. a pagination
// link) or a path relative to the base URL. Returns *APIError for non-2xx
// responses and *TransportError when no response was received.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if strings.HasPrefix(rawURL, "/") {
		rawURL = c.baseURL + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedQuery, err)
	}
	req.Header.Set("Authorization", c.scheme+" "+c.token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: err}
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Next:       NextLink(resp.Header),
		}, nil
	}

	bodyStr := string(body)
	if len(bodyStr) > maxErrorBody {
		bodyStr = bodyStr[:maxErrorBody]
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = retryAfter(resp.Header, time.Now())
	}
	return nil, apiErr
}

// NextLink returns the target of the rel="next" entry of the Link headers.
func NextLink(h http.Header) string {
	for _, line := range h.Values("Link") {
		for _, part := range strings.Split(line, ",") {
			segs := strings.Split(part, ";")
			if len(segs) < 2 {
				continue
			}
			target := strings.TrimSpace(segs[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range segs[1:] {
				k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
				if ok && strings.EqualFold(k, "rel") && strings.Trim(v, `"`) == "next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}

// retryAfter reads the server-indicated wait: Retry-After (seconds or
// HTTP date) first, then Okta's X-Rate-Limit-Reset (epoch seconds).
func retryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil && t.After(now) {
			return t.Sub(now)
		}
	}
	if v := h.Get("X-Rate-Limit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if reset := time.Unix(epoch, 0); reset.After(now) {
				return reset.Sub(now)
			}
		}
	}
	return 0
}
