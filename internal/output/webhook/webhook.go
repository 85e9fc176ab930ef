// Package webhook posts each diagnosis as a JSON document to an HTTP
// endpoint, e.g. a farm management system or a chat relay.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithTimeout sets the per-attempt HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithReport embeds the text report in every posted document.
func WithReport() Option {
	return func(o *Output) { o.withReport = true }
}

// withBaseDelay shortens the retry backoff in tests.
func withBaseDelay(d time.Duration) Option {
	return func(o *Output) { o.baseDelay = d }
}

// Output POSTs one output.Document per diagnosis. Retries on 5xx with
// exponential backoff (1s, 2s, 4s).
type Output struct {
	client     *http.Client
	url        string
	headers    map[string]string
	withReport bool
	baseDelay  time.Duration
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:    &http.Client{Timeout: defaultTimeout},
		url:       url,
		baseDelay: time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write posts d and waits for a 2xx response.
func (o *Output) Write(ctx context.Context, d model.Diagnosis) error {
	body, err := json.Marshal(output.NewDocument(d, o.withReport))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	return o.postWithRetry(ctx, body)
}

// Close is a no-op; every Write completes its own request.
func (o *Output) Close() error {
	return nil
}

func (o *Output) postWithRetry(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(time.Duration(1<<(attempt-1)) * o.baseDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range o.headers {
			req.Header.Set(k, v)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
