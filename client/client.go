package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/tools"
)

const (
	// DefaultTimeout bounds every request. It exceeds the worker's git
	// timeout so a slow clone fails on the worker first.
	DefaultTimeout = 150 * time.Second

	readyInitialInterval = 100 * time.Millisecond
	readyMaxInterval     = 2 * time.Second
)

// Client is a worker HTTP client. It is safe for concurrent use.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithSecret sends "Authorization: Bearer <secret>" on every request.
func WithSecret(secret string) Option {
	return func(c *Client) { c.secret = secret }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// New creates a Client for the worker at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CloneResult identifies a prepared worktree on the worker.
type CloneResult struct {
	Slug     string `json:"slug"`
	SHA      string `json:"sha"`
	Worktree string `json:"worktree"`
}

type cloneRequest struct {
	URL       string `json:"url"`
	Commitish string `json:"commitish,omitempty"`
}

type response struct {
	platformerrors.ErrorResponse
	Output string `json:"output"`
	CloneResult
}

// Health checks that the worker is serving.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// WaitForReady polls Health with capped exponential backoff until it
// succeeds or maxWait elapses. A health check in flight is cut off when
// the wait runs out.
func (c *Client) WaitForReady(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = readyInitialInterval
	b.MaxInterval = readyMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.Health(ctx)
		if err != nil {
			clog.FromContext(ctx).Debugf("Worker not ready: %v", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(maxWait))
	if err != nil {
		return platformerrors.Wrapf(err, platformerrors.CodeUnavailable, "worker at %s not ready after %s", c.baseURL, maxWait)
	}
	return nil
}

// Clone prepares a worktree of url at commitish. An empty commitish means
// the remote's default branch.
func (c *Client) Clone(ctx context.Context, url, commitish string) (*CloneResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/clone", cloneRequest{URL: url, Commitish: commitish})
	if err != nil {
		return nil, err
	}
	return &resp.CloneResult, nil
}

// ExecuteTool runs a tool in a worktree prepared by Clone. It never fails:
// errors are returned as text beginning with "Error: ".
func (c *Client) ExecuteTool(ctx context.Context, slug, sha, name string, args json.RawMessage) string {
	resp, err := c.do(ctx, http.MethodPost, "/tool", tools.Request{Slug: slug, SHA: sha, Name: name, Args: args})
	if err != nil {
		return tools.ErrorText(err)
	}
	return resp.Output
}

// Reset removes every repository from the worker's cache.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/reset", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, platformerrors.Wrapf(err, platformerrors.CodeTimeout, "%s %s timed out", method, path)
		}
		return nil, platformerrors.Wrapf(err, platformerrors.CodeUnavailable, "%s %s failed", method, path)
	}
	defer httpResp.Body.Close()

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, platformerrors.WithContext(
			platformerrors.Wrapf(err, platformerrors.CodeUnavailable, "%s %s returned an unreadable response", method, path),
			"status", httpResp.StatusCode,
		)
	}

	if httpResp.StatusCode != http.StatusOK || !resp.OK {
		return nil, remoteError(httpResp.StatusCode, &resp)
	}
	return &resp, nil
}

// remoteError rebuilds the worker's error from its response body.
func remoteError(status int, resp *response) error {
	return platformerrors.WithContext(
		platformerrors.FromJSON(&resp.ErrorResponse, http.StatusText(status)),
		"status", status,
	)
}
