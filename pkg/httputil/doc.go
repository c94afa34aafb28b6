// Package httputil provides HTTP utilities shared by the model provider
// clients.
//
// # Retry
//
// [Retry] wraps provider requests with automatic retry for transient
// failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Only errors wrapped with [RetryableError] are retried; configuration and
// 4xx-class errors surface immediately. Backoff is exponential, bounded
// between a floor and a ceiling delay:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return callProvider()
//	})
//
// # Configuration
//
// Default settings match the provider contract:
//
//   - Max attempts: 3
//   - Backoff floor: 2 seconds
//   - Backoff ceiling: 30 seconds
//
// Retries are invisible to the caller on success; after exhaustion the
// original failure propagates unchanged.
package httputil
