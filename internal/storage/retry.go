package storage

import (
	"context"
	"math"
	"time"
)

// RetryStrategy controls how a failed location write is retried.
type RetryStrategy struct {
	// MaxRetries is the number of extra attempts (0 = no retries)
	MaxRetries int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after each attempt
	BackoffFactor float64
}

// DefaultRetryStrategy suits remote object stores.
func DefaultRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// NoRetry returns a strategy that never retries
func NoRetry() *RetryStrategy {
	return &RetryStrategy{}
}

// NextDelay returns the delay before retry number attempt (1-indexed).
func (r *RetryStrategy) NextDelay(attempt int) time.Duration {
	if r == nil || attempt < 1 || attempt > r.MaxRetries {
		return 0
	}
	factor := r.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(r.InitialDelay) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		return r.MaxDelay
	}
	return delay
}

// ShouldRetry returns true if another attempt is allowed after attempt (1-indexed) failed.
func (r *RetryStrategy) ShouldRetry(attempt int) bool {
	return r != nil && attempt <= r.MaxRetries
}

// Do runs fn until it succeeds, retries are exhausted, or ctx is done.
// It returns the number of attempts made and the last error.
func (r *RetryStrategy) Do(ctx context.Context, fn func() error) (int, error) {
	attempt := 1
	for {
		err := fn()
		if err == nil || !r.ShouldRetry(attempt) {
			return attempt, err
		}
		select {
		case <-ctx.Done():
			return attempt, err
		case <-time.After(r.NextDelay(attempt)):
		}
		attempt++
	}
}
