// Package fetch downloads leaf images from http(s) URLs for the CLI.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrTooLarge is returned when the response body exceeds the byte cap.
var ErrTooLarge = errors.New("fetch: response exceeds size limit")

// HTTPError represents a non-2xx HTTP response.
type HTTPError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client with retry logic for image downloads.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseDelay  time.Duration
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// withBaseDelay shortens the backoff unit in tests.
func withBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "leafdoc",
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const maxRetries = 3

// Get downloads url and returns at most maxBytes of body. Returns *HTTPError
// for non-2xx responses and ErrTooLarge when the body is bigger than the cap.
// Retries on 429 (honouring Retry-After) and 5xx with exponential backoff
// (1s, 2s, 4s). Max 3 retries.
func (c *Client) Get(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	var lastErr *HTTPError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		body, httpErr, err := c.do(ctx, url, maxBytes)
		if err != nil {
			return nil, err
		}
		if httpErr == nil {
			return body, nil
		}
		if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
			lastErr = httpErr
			continue
		}
		return nil, httpErr
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string, maxBytes int64) ([]byte, *HTTPError, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/jpeg, image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
			retryAfter: resp.Header.Get("Retry-After"),
		}, nil
	}

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, nil, ErrTooLarge
	}
	r := io.Reader(resp.Body)
	if maxBytes > 0 {
		r = io.LimitReader(resp.Body, maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, nil, ErrTooLarge
	}
	return body, nil, nil
}

// backoffDelay returns the wait before a retry attempt.
func (c *Client) backoffDelay(attempt int, lastErr *HTTPError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * c.baseDelay
		}
	}
	return time.Duration(1<<(attempt-1)) * c.baseDelay
}
