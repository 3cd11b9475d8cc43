package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (not including initial attempt).
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64

	// Jitter adds randomness to delay to prevent thundering herd.
	Jitter bool

	// ShouldRetry decides whether an error is worth another attempt.
	// Nil retries every error.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig returns the retry configuration used for live fetches.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		ShouldRetry:  IsRetryable,
	}
}

// RetryWithResult executes fn with exponential backoff and returns its last result.
// On final failure the result of the last attempt is returned with the error.
// If the context is cancelled, it returns the context error immediately.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	delay := cfg.InitialDelay

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			if cfg.MaxRetries == 0 {
				return result, err
			}
			return result, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, err)
		}

		wait := delay
		if cfg.Jitter {
			wait = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
