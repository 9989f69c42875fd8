// Package retry decides whether a failed service call should be attempted
// again and how long to wait before doing so.
package retry

import (
	"context"
	"math/rand"
	"time"

	"lumi/domain"
)

const (
	// DefaultMaxAttempts bounds automatic retries for a single operation
	DefaultMaxAttempts = 3

	baseDelay = 1000 * time.Millisecond
	maxDelay  = 30000 * time.Millisecond
)

// ShouldRetry reports whether an operation that failed with err on the given
// zero-based attempt should be tried again. Only network and server errors
// are retryable; everything else surfaces immediately. Once attempt reaches
// maxAttempts the answer is no regardless of classification.
func ShouldRetry(err error, attempt, maxAttempts int) bool {
	if attempt >= maxAttempts {
		return false
	}
	return domain.Retryable(err)
}

// Delay computes the backoff before retry number attempt (zero-based):
// exponential growth capped at 30s, scaled by a uniform jitter factor in
// [0.5, 1.0] to avoid synchronized retry storms.
func Delay(attempt int) time.Duration {
	d := baseDelay << attempt
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(d) * jitter)
}

// Do runs op, retrying per ShouldRetry with Delay between attempts. The wait
// is context-aware: cancellation during backoff returns immediately with the
// context's error, so an aborted request key never keeps retrying.
func Do(ctx context.Context, maxAttempts int, op func(context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !ShouldRetry(err, attempt, maxAttempts) {
			return err
		}

		timer := time.NewTimer(Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, maxAttempts int, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, maxAttempts, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}
