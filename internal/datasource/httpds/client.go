// Package httpds fetches submissions over HTTP(S). Requests are retried with
// exponential backoff on transport errors, 429 and 5xx responses.
package httpds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config configures a Client. Zero values get defaults: Timeout 60s,
// InitialBackoff 250ms, MaxBackoff 8s. MaxRetries 0 means a single attempt.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
	// Transport replaces http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// StatusError is returned for a final non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Client issues GET requests with retry.
type Client struct {
	hc         *http.Client
	maxRetries int
	initial    time.Duration
	maxBackoff time.Duration
	userAgent  string
	log        *zap.Logger

	// after is time.After; tests swap it to skip real waits.
	after func(time.Duration) <-chan time.Time
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 250 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 8 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	tr := cfg.Transport
	if tr == nil {
		tr = http.DefaultTransport
	}
	return &Client{
		hc:         &http.Client{Timeout: cfg.Timeout, Transport: tr},
		maxRetries: cfg.MaxRetries,
		initial:    cfg.InitialBackoff,
		maxBackoff: cfg.MaxBackoff,
		userAgent:  cfg.UserAgent,
		log:        cfg.Logger,
		after:      time.After,
	}
}

// Get fetches url. header may be nil. A 2xx (or 206) response is returned
// with an open body the caller must close; any other final status becomes a
// *StatusError.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	if url == "" {
		return nil, errors.New("httpds: empty url")
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.hc.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case retryable(resp.StatusCode):
			_ = resp.Body.Close()
			lastErr = &StatusError{URL: url, Code: resp.StatusCode}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			_ = resp.Body.Close()
			return nil, &StatusError{URL: url, Code: resp.StatusCode}
		default:
			return resp, nil
		}

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("httpds: giving up after %d attempts: %w", attempt+1, lastErr)
		}
		wait := backoff(c.initial, attempt, c.maxBackoff)
		c.log.Warn("http fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.after(wait):
		}
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoff doubles initial per attempt (0-based) and clamps at limit.
func backoff(initial time.Duration, attempt int, limit time.Duration) time.Duration {
	if attempt > 30 {
		return limit
	}
	d := initial << attempt
	if d <= 0 || d > limit {
		return limit
	}
	return d
}
