// Package httpretry provides an HTTP client with bounded retry logic,
// exponential backoff, and jitter for calls to affiliate network APIs.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/offer-finder/internal/pkg/logger"
)

// MaxRetriesCap bounds the retry budget regardless of configuration.
const MaxRetriesCap = 5

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic using exponential backoff and jitter.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient creates a new RetryClient that wraps the given HTTPDoer.
// If client is nil, a default http.Client with 30s timeout is used.
// maxRetries is the number of retry attempts after the initial request;
// negative values mean no retries and values above MaxRetriesCap are capped.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > MaxRetriesCap {
		maxRetries = MaxRetriesCap
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
}

// WithBackoff overrides the backoff window. Tests use tiny values.
func (rc *RetryClient) WithBackoff(base, max time.Duration) *RetryClient {
	if base > 0 {
		rc.baseDelay = base
	}
	if max >= base {
		rc.maxDelay = max
	}
	return rc
}

// MaxRetries returns the effective retry budget.
func (rc *RetryClient) MaxRetries() int {
	return rc.maxRetries
}

// Do executes the HTTP request with retry logic.
// It retries on retryable status codes (429, 500, 502, 503, 504) and
// transient network/timeout errors. It does NOT retry on client errors
// (400, 401, 403, 404) or context cancellation.
// On the final attempt, it returns the response as-is so the caller
// can inspect the status code and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.calculateDelay(attempt)
			logger.Warn("httpretry: retrying request",
				"attempt", attempt, "max_retries", rc.maxRetries,
				"method", req.Method, "host", req.URL.Host, "path", req.URL.Path,
				"wait", delay, "last_error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !IsRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain for connection reuse before the next attempt.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// calculateDelay returns the backoff duration for the given retry attempt.
// Uses exponential backoff with full jitter: random(0, min(maxDelay, baseDelay * 2^(attempt-1))).
func (rc *RetryClient) calculateDelay(attempt int) time.Duration {
	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)

	// floor keeps a retry from hammering a throttled API
	floor := rc.baseDelay / 5
	if jittered < floor {
		jittered = floor
	}
	return jittered
}

// IsRetryableStatus returns true if the HTTP status code indicates a
// transient server error that should be retried: 429, 500, 502, 503, 504.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
