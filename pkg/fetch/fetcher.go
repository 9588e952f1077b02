// Package fetch retrieves page markup over HTTP with retries and
// browser-like headers. Re-fetching a page is assumed idempotent and cheap.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// Fetcher is an HTTP page fetcher with backoff retries per request.
type Fetcher struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   time.Duration
}

// Params configures the fetcher; zero values pick sane defaults.
type Params struct {
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	UserAgent string
}

// New creates a fetcher.
func New(p Params) *Fetcher {
	if p.Timeout == 0 {
		p.Timeout = 15 * time.Second
	}
	if p.Retries == 0 {
		p.Retries = 3
	}
	if p.Backoff == 0 {
		p.Backoff = 3 * time.Second
	}
	if p.UserAgent == "" {
		p.UserAgent = "Mozilla/5.0 (compatible; livewatch/1.0)"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: p.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: p.UserAgent,
		retries:   p.Retries,
		backoff:   p.Backoff,
	}
}

// Fetch retrieves the page at url and returns its markup. Failures are
// retried with growing backoff; the returned error means retries are
// exhausted and the caller should skip this page for the cycle.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var markup string
	retrier := repeater.NewBackoff(f.retries, f.backoff, repeater.WithMaxDelay(30*time.Second))
	err := retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		addBrowserHeaders(req)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("get %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body of %s: %w", url, err)
		}
		markup = string(body)
		return nil
	})
	if err != nil {
		return "", err
	}
	return markup, nil
}
