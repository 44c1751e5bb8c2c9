// Package transport is the outbound HTTP collaborator: it signs requests with
// the API key, retries transient failures with jittered exponential backoff,
// and surfaces either a response body or one terminal error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vitals/pkg/logger"
	"github.com/okian/vitals/pkg/metrics"
)

// Defaults mirror the upstream retry contract.
const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
	defaultMaxJitter   = 500 * time.Millisecond
	defaultTimeout     = 30 * time.Second
	maxBackoffShift    = 16
	maxRetryAfter      = time.Minute
	maxResponseBody    = 10 << 20
)

// Header names.
const (
	HeaderAPIKey    = "x-api-key"
	HeaderRequestID = "X-Request-ID"
)

// Client performs retried JSON requests against one base URL.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      logger.Logger
}

// NewHTTPClient creates an HTTP client tuned for outbound API calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// New creates a Client for baseURL, e.g. "https://host/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        NewHTTPClient(defaultTimeout),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxJitter:   defaultMaxJitter,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("transport")
	}
	return c
}

// Get performs a GET of path with query parameters and returns the body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// PostJSON marshals body, POSTs it to path and returns the response body.
func (c *Client) PostJSON(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %w", ErrBuildRequest, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 1; ; attempt++ {
		respBody, retryAfter, err := c.attempt(ctx, method, path, target, body)
		if err == nil {
			return respBody, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrBuildRequest) {
			return nil, err
		}

		reason := "network"
		var se *StatusError
		if errors.As(err, &se) {
			if !se.Retryable() {
				return nil, fmt.Errorf("%w: %s %s: %w", ErrUnexpectedStatus, method, path, err)
			}
			reason = "status_" + strconv.Itoa(se.Code)
		}
		if attempt >= c.maxAttempts {
			return nil, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrRetriesExhausted, method, path, attempt, err)
		}

		delay := c.backoff(attempt)
		if retryAfter > delay {
			delay = retryAfter
		}
		metrics.RecordHTTPRetry(path, reason)
		c.logger.Warn(ctx, "request failed, retrying",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", c.maxAttempts),
			logger.Duration("delay", delay),
			logger.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt performs one round trip. A non-2xx response comes back as *StatusError.
func (c *Client) attempt(ctx context.Context, method, path, target string, body []byte) ([]byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBuildRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		metrics.RecordHTTPRequest(path, method, "error", elapsed)
		return nil, 0, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug(ctx, "failed to close response body", logger.Error(cerr))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	metrics.RecordHTTPRequest(path, method, strconv.Itoa(resp.StatusCode), elapsed)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var retryAfter time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		}
		return nil, retryAfter, newStatusError(resp.StatusCode, respBody)
	}
	return respBody, 0, nil
}

// backoff returns baseDelay * 2^retry plus uniform jitter in [0, maxJitter).
func (c *Client) backoff(retry int) time.Duration {
	shift := min(retry, maxBackoffShift)
	d := c.baseDelay * time.Duration(1<<shift)
	if c.maxJitter > 0 {
		d += rand.N(c.maxJitter)
	}
	return d
}

// parseRetryAfter understands delta-seconds and HTTP dates; the result is
// capped at maxRetryAfter.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d < 0 {
		return 0
	}
	return min(d, maxRetryAfter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
