package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// retryPolicy bounds the retries around one history query.
type retryPolicy struct {
	maxRetries int
	initial    time.Duration
	max        time.Duration
}

var (
	errNoHTTPClient = errors.New("http client not configured")

	// errTransient marks failures worth retrying: rate limiting, server-side
	// errors, transport errors. Anything else fails the query outright.
	errTransient = errors.New("transient history error")
)

// fetch runs one HTTP request through the circuit breaker with bounded
// exponential backoff. The caller owns the body of a returned response;
// bodies of failed attempts are drained and closed here so retries do not
// leak connections.
func fetch(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, policy retryPolicy, build func() (*http.Request, error)) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	delay := policy.initial
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, doErr := client.Do(req.WithContext(ctx))
			if doErr != nil {
				return nil, fmt.Errorf("%w: %v", errTransient, doErr)
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			// Drain before closing so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, fmt.Errorf("%w: status %d", errTransient, resp.StatusCode)
			}
			return nil, fmt.Errorf("history status %d", resp.StatusCode)
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		// An open breaker or a permanent status is not worth waiting on.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}
		if !errors.Is(err, errTransient) || attempt >= policy.maxRetries {
			return nil, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if policy.max > 0 && delay > policy.max {
			delay = policy.max
		}
	}
}
