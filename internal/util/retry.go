package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryableError marks a failure that may succeed on a later attempt.
// A positive Wait overrides the computed backoff (e.g. from Retry-After).
type RetryableError struct {
	Err  error
	Wait time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so RetryWithBackoff will try again.
func Retryable(err error, wait time.Duration) error {
	return &RetryableError{Err: err, Wait: wait}
}

// RetryWithBackoff calls fn up to maxRetries+1 times. fn receives the attempt
// number (0-indexed). Only errors wrapped with Retryable are retried; anything
// else is returned as is. The delay before attempt n+1 is base * 2^n unless the
// error carries its own wait.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var retryable *RetryableError
		if !errors.As(lastErr, &retryable) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		wait := retryable.Wait
		if wait <= 0 {
			wait = base << attempt
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
