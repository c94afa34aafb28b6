package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 429s, 5xx responses) with this
// type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. A nil err returns nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay starts at floor, doubles after each
// failed attempt, and never exceeds ceil. After the final attempt the last
// error is returned unchanged (minus the retryable wrapper), so callers see
// the original provider failure. Returns ctx.Err() if cancelled mid-wait.
func Retry(ctx context.Context, attempts int, floor, ceil time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	delay := floor
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = min(delay*2, ceil)
			}
		}
	}

	var re *RetryableError
	if errors.As(lastErr, &re) {
		return re.Err
	}
	return lastErr
}

// RetryWithBackoff is a convenience wrapper around [Retry] with the
// provider-call defaults: 3 attempts with delays bounded between 2 and 30
// seconds.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, 2*time.Second, 30*time.Second, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
