// Package httpds fetches published spreadsheet exports over HTTP. GETs that
// fail at the transport level or answer 429/5xx are retried with capped
// exponential backoff; a Retry-After header on 429/503 overrides the computed
// delay. Context cancellation is honored during requests and waits.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Config configures a Client. Zero values mean: 30s timeout, no retries,
// 200ms initial backoff, 5s max backoff.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// InsecureSkipVerify disables TLS verification. Only for proxies with
	// self-signed certificates.
	InsecureSkipVerify bool

	// UserAgent is sent on every request when set.
	UserAgent string

	// Transport replaces the default transport, mostly for tests.
	Transport http.RoundTripper
}

// Client is a retrying GET client. It is safe for concurrent use.
type Client struct {
	hc         *http.Client
	retries    int
	initial    time.Duration
	maxBackoff time.Duration
	userAgent  string

	// wait blocks for d or until ctx is done. Tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	rt := cfg.Transport
	if rt == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // explicitly configurable
		rt = t
	}
	return &Client{
		hc:         &http.Client{Timeout: cfg.Timeout, Transport: rt},
		retries:    max(cfg.MaxRetries, 0),
		initial:    cfg.InitialBackoff,
		maxBackoff: cfg.MaxBackoff,
		userAgent:  cfg.UserAgent,
		wait:       waitContext,
	}
}

// Get fetches url. The returned response has a status that is not retried
// and its Body must be closed by the caller. When retries run out the last
// failure is returned; a retried status surfaces as *StatusError.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}
	for attempt := 0; ; attempt++ {
		resp, err := c.get(ctx, url, header)
		var last error
		var hint time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			last = err
		case retryable(resp.StatusCode):
			hint = retryAfter(resp)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			last = &StatusError{URL: url, Code: resp.StatusCode}
		default:
			return resp, nil
		}

		if attempt >= c.retries {
			return nil, fmt.Errorf("httpds: GET %s failed after %d attempt(s): %w", url, attempt+1, last)
		}
		d := c.delay(attempt)
		if hint > 0 {
			d = min(hint, c.maxBackoff)
		}
		if err := c.wait(ctx, d); err != nil {
			return nil, err
		}
	}
}

func (c *Client) get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.hc.Do(req)
}

// delay is initial * 2^attempt, capped at maxBackoff.
func (c *Client) delay(attempt int) time.Duration {
	d := c.initial
	for i := 0; i < attempt && d < c.maxBackoff; i++ {
		d *= 2
	}
	return min(d, c.maxBackoff)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// retryAfter reads a delay-seconds Retry-After header. HTTP dates and
// other statuses yield 0.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
