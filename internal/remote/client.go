// Package remote is the client side of the remote note endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/juju/ratelimit"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("remote: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// Unwrap maps well-known statuses onto apperr sentinels so callers can use
// errors.Is. Everything else is a transient failure.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrAlreadyExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.ErrInvalid
	}
	return nil
}

// Client talks to the remote CRUD endpoint.
type Client struct {
	base   *url.URL
	http   *http.Client
	bucket *ratelimit.Bucket
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps outgoing requests to rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.bucket = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.bucket = ratelimit.NewBucketWithRate(rps, burst)
	}
}

// New creates a client for the API rooted at baseURL (e.g. http://host:8080/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: base url must be absolute: %q", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches the full remote collection.
func (c *Client) List(ctx context.Context) ([]models.RemoteNote, error) {
	var out []models.RemoteNote
	if err := c.do(ctx, http.MethodGet, c.base.JoinPath("notes"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one note. A missing note yields an error matching apperr.ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (*models.RemoteNote, error) {
	var out models.RemoteNote
	if err := c.do(ctx, http.MethodGet, c.base.JoinPath("notes", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create sends the full note body as a new note.
func (c *Client) Create(ctx context.Context, n models.RemoteNote) (*models.RemoteNote, error) {
	var out models.RemoteNote
	if err := c.do(ctx, http.MethodPost, c.base.JoinPath("notes"), n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends the full note body over an existing note.
func (c *Client) Update(ctx context.Context, n models.RemoteNote) (*models.RemoteNote, error) {
	var out models.RemoteNote
	if err := c.do(ctx, http.MethodPut, c.base.JoinPath("notes", n.ID), n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks the server's liveness endpoint. It is the connectivity probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.base.ResolveReference(&url.URL{Path: "/health/live"}), nil, nil)
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, u.Path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: %s %s: decode: %w", method, u.Path, err)
	}
	return nil
}

// wait blocks until the rate limiter grants a token or ctx is done.
func (c *Client) wait(ctx context.Context) error {
	if c.bucket == nil {
		return nil
	}
	d := c.bucket.Take(1)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newStatusError(method, path string, resp *http.Response) *StatusError {
	se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		se.Message = body.Error
	} else {
		se.Message = string(bytes.TrimSpace(raw))
	}
	return se
}
