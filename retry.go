package foreman

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// retryInvoker wraps an Invoker and automatically retries transient HTTP
// errors (status 429 Too Many Requests and 503 Service Unavailable) with
// exponential backoff. One step attempt still produces at most one terminal
// report; retries happen inside the single provider-call stage.
type retryInvoker struct {
	inner       Invoker
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// RetryOption configures a retry wrapper.
type RetryOption func(*retryInvoker)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryInvoker) { r.maxAttempts = n }
}

// RetryBaseDelay sets the initial backoff delay before the second attempt
// (default: 1s). Each subsequent delay doubles.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryInvoker) { r.baseDelay = d }
}

// RetryLogger sets the structured logger for retry events. Retries log at
// WARN and final failures at ERROR; unset means no output.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryInvoker) { r.logger = l }
}

// WithRetry wraps inv with automatic retry on transient HTTP errors:
//
//	inv = foreman.WithRetry(inv, foreman.RetryMaxAttempts(3))
//
// Non-transient errors (bad requests, extraction failures, timeouts) pass
// through on the first attempt.
func WithRetry(inv Invoker, opts ...RetryOption) Invoker {
	r := &retryInvoker{
		inner:       inv,
		maxAttempts: 3,
		baseDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = nopLogger
	}
	return r
}

// Name delegates to the inner invoker.
func (r *retryInvoker) Name() string { return r.inner.Name() }

// Invoke implements Invoker with retry.
func (r *retryInvoker) Invoke(ctx context.Context, req InvokeRequest) (string, error) {
	var last error
	for i := 0; i < r.maxAttempts; i++ {
		text, err := r.inner.Invoke(ctx, req)
		if err == nil || !isTransient(err) {
			return text, err
		}
		last = err
		r.logger.Warn("retrying transient error",
			"provider", r.inner.Name(),
			"status", statusOf(err),
			"attempt", i+1,
			"max_attempts", r.maxAttempts)
		if i < r.maxAttempts-1 {
			timer := time.NewTimer(retryBackoff(r.baseDelay, i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
	}
	r.logger.Error("all retry attempts exhausted",
		"provider", r.inner.Name(),
		"attempts", r.maxAttempts,
		"error", last)
	return "", last
}

// isTransient reports whether err is a retryable HTTP error (429 or 503).
func isTransient(err error) bool {
	var e *ErrHTTP
	return errors.As(err, &e) && (e.Status == 429 || e.Status == 503)
}

// statusOf extracts the HTTP status code from an ErrHTTP, or 0.
func statusOf(err error) int {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// retryBackoff returns the delay for retry i (0-indexed).
// Exponential: base * 2^i, plus up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}
