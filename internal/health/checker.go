package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProber abstracts *http.Client for testability.
type HTTPProber interface {
	Do(req *http.Request) (*http.Response, error)
}

// Checker issues single-shot health probes against dev server URLs.
// It keeps no memory of previous probes; the supervisor loop decides
// what a pass or fail means for process state.
type Checker struct {
	client HTTPProber
}

// NewChecker creates a checker. If client is nil, a default client with
// a 5 second timeout is used.
func NewChecker(client HTTPProber) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{client: client}
}

// Probe issues one GET against url and returns nil when the server
// answered with a success status. Connection errors, timeouts, and
// non-success responses are all classified uniformly as a failure; the
// caller only needs pass/fail.
func (c *Checker) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return fmt.Errorf("probe returned status %d", resp.StatusCode)
}
