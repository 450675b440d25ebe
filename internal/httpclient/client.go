package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

const (
	defaultMaxRetries     = 3
	defaultInitialDelay   = 1 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultChunkDelay     = 200 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
)

// Config holds options for a rate-limit-aware client.
type Config struct {
	// Provider names the upstream for error values and log lines.
	Provider domain.ProviderType

	// BaseURL is prepended to every endpoint.
	BaseURL string

	// MaxRetries is the total number of attempts for rate-limited
	// requests (default 3).
	MaxRetries int

	// InitialDelay is the first backoff delay (default 1s). Delays
	// double per attempt, capped at MaxDelay (default 30s). A
	// Retry-After hint from the upstream takes precedence.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// ChunkDelay is the pause between chunks in ProcessInChunks
	// (default 200ms).
	ChunkDelay time.Duration

	// RequestTimeout bounds a single HTTP exchange (default 30s).
	RequestTimeout time.Duration

	// RequestsPerSecond enables proactive throttling when > 0, so
	// bursts are smoothed before the upstream has to say 429.
	RequestsPerSecond float64

	// RetryPredicate decides whether a non-rate-limit error is
	// retryable. Nil means such errors are never retried.
	RetryPredicate func(error) bool

	HTTPClient *http.Client
	Logger     *slog.Logger

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// APIError is a non-2xx response that is neither throttling nor an
// authentication failure.
type APIError struct {
	Provider   domain.ProviderType
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Client issues authenticated JSON requests against one provider API,
// retrying rate-limited calls with bounded exponential backoff.
type Client struct {
	cfg     Config
	limiter *rate.Limiter

	mu          sync.RWMutex
	accessToken string
}

// New creates a client bound to an access token.
func New(accessToken string, cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = defaultChunkDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{cfg: cfg, limiter: limiter, accessToken: accessToken}
}

// SetAccessToken swaps the bearer token, e.g. after a refresh.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Do issues a JSON request and decodes the response into out (when out
// is non-nil). 429 responses are retried up to MaxRetries with
// exponential backoff; after exhaustion a domain.RateLimitError
// carrying the resume timestamp is returned. Other failures consult
// RetryPredicate, defaulting to no retry.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	delay := c.cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := c.doOnce(ctx, method, endpoint, payload, out)
		if err == nil {
			return nil
		}

		retryAfter, rateLimited := retryAfterHint(err)
		if rateLimited {
			wait := delay
			if retryAfter > 0 {
				// Upstream hint takes precedence over computed backoff.
				wait = retryAfter
			}
			if attempt >= c.cfg.MaxRetries {
				return &domain.RateLimitError{
					Provider: c.cfg.Provider,
					ResumeAt: c.cfg.Now().Add(wait),
					Attempts: attempt,
				}
			}
			c.cfg.Logger.Warn("rate limited, backing off",
				"provider", c.cfg.Provider,
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"wait", wait,
			)
			if err := c.cfg.Sleep(ctx, wait); err != nil {
				return err
			}
			delay = minDuration(delay*2, c.cfg.MaxDelay)
			continue
		}

		if c.cfg.RetryPredicate != nil && c.cfg.RetryPredicate(err) && attempt < c.cfg.MaxRetries {
			c.cfg.Logger.Warn("retrying request",
				"provider", c.cfg.Provider,
				"attempt", attempt,
				"error", err,
			)
			if sleepErr := c.cfg.Sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
			delay = minDuration(delay*2, c.cfg.MaxDelay)
			continue
		}

		return err
	}
}

// rateLimitedError carries the upstream throttle hint between doOnce
// and the retry loop; it never escapes Do.
type rateLimitedError struct {
	retryAfter time.Duration
	body       string
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %s", e.retryAfter, e.body)
}

func retryAfterHint(err error) (time.Duration, bool) {
	if rl, ok := err.(*rateLimitedError); ok {
		return rl.retryAfter, true
	}
	return 0, false
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.cfg.BaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: "read " + endpoint, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil

	case isRateLimited(resp):
		return &rateLimitedError{
			retryAfter: parseRetryAfter(resp, c.cfg.Now),
			body:       truncate(respBody, 200),
		}

	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.AuthError{
			Provider:   c.cfg.Provider,
			StatusCode: resp.StatusCode,
			Body:       truncate(respBody, 200),
		}

	default:
		return &APIError{
			Provider:   c.cfg.Provider,
			StatusCode: resp.StatusCode,
			Body:       truncate(respBody, 200),
		}
	}
}

// isRateLimited covers the standard 429 plus GitHub's 403-with-zero-
// remaining variant.
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// parseRetryAfter extracts the upstream throttle hint: Retry-After in
// seconds, or an X-RateLimit-Reset unix timestamp. Zero means no hint.
func parseRetryAfter(resp *http.Response, now func() time.Time) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(reset, 0).Sub(now()); d > 0 {
				return d
			}
		}
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
