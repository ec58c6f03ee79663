// Package retry implements exponential backoff with jitter, guarding the
// upload collaborator's HTTP calls to the aggregation service
// (internal/upload.HTTPClient.Upload) against transient network and 5xx
// failures.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Config configures one exponential-backoff retry loop. The zero value
// is not usable: MaxRetries and InitialBackoff must be set.
type Config struct {
	// MaxRetries is the maximum number of attempts; fn is called at most
	// this many times.
	MaxRetries int

	// InitialBackoff is the delay before the second attempt; it doubles
	// on each subsequent attempt (InitialBackoff * 2^(attempt-1)).
	InitialBackoff time.Duration

	// MaxBackoff caps the computed delay before jitter is applied. Zero
	// means unbounded.
	MaxBackoff time.Duration

	// Jitter is the fraction (0..1) of the computed delay that is
	// randomized: the actual sleep is drawn uniformly from
	// [(1-Jitter)*backoff, backoff] (a bounded form of "full jitter").
	// Zero means the delay is used exactly as computed.
	Jitter float64
}

// ShouldRetryFunc decides whether an error returned by the retried
// function should trigger another attempt. A nil ShouldRetryFunc passed
// to Do retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, shouldRetry reports the error isn't
// retryable, cfg.MaxRetries is exhausted, or ctx is canceled during a
// backoff wait. On exhaustion it returns an error wrapping the last
// failure.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffFor(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// backoffFor computes the delay before the given 1-indexed retry
// attempt: InitialBackoff doubled attempt-1 times, capped at MaxBackoff,
// then randomized within the top Jitter fraction of that value so
// concurrent retriers (e.g. many agent hosts retrying an upload at once)
// don't all wake up on the same tick.
func backoffFor(cfg Config, attempt int) time.Duration {
	backoff := cfg.InitialBackoff << uint(attempt-1)
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	if cfg.Jitter <= 0 || backoff <= 0 {
		return backoff
	}

	band := time.Duration(float64(backoff) * cfg.Jitter)
	if band <= 0 {
		return backoff
	}
	return backoff - band + time.Duration(rand.Int63n(int64(band)+1))
}
