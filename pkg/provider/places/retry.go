package places

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the per-call timeout applied by adapters when none is
// configured.
const DefaultTimeout = 10 * time.Second

// DefaultMaxAttempts is the total number of attempts (first try plus retries)
// an adapter makes before giving up on an upstream call.
const DefaultMaxAttempts = 3

// Error describes a failed upstream provider call after all retries.
type Error struct {
	// Provider is the provider identifier.
	Provider string

	// StatusCode is the final upstream HTTP status, or 0 for transport errors.
	StatusCode int

	// Message is a truncated description of the failure.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// RequestFactory builds a fresh request per attempt. Request bodies cannot be
// replayed, so the retry loop asks for a new one each time.
type RequestFactory func(ctx context.Context) (*http.Request, error)

// DoWithRetry executes the request with exponential backoff: wait 2^attempt
// seconds after the attempt-th failure. Transport errors and 5xx responses are
// retried up to maxAttempts; 4xx responses fail fast. On success the response
// body is returned fully read and the connection released.
func DoWithRetry(ctx context.Context, client *http.Client, provider string, maxAttempts int, build RequestFactory) ([]byte, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			// Wait 2^n seconds after the n-th failed attempt (n starts at 0).
			wait := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("places: %s: %w", provider, ctx.Err())
			case <-time.After(wait):
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("places: %s: build request: %w", provider, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("places: %s: %w", provider, err)
			}
			lastErr = &Error{Provider: provider, Message: err.Error()}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				lastErr = &Error{Provider: provider, Message: readErr.Error()}
				continue
			}
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = &Error{
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    truncate(string(body), 200),
			}
			continue
		default:
			// Client errors are not recoverable by retrying.
			return nil, &Error{
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    truncate(string(body), 200),
			}
		}
	}

	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
