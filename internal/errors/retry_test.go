package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retry discards the result for tests that only care about the error.
func retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryWithResult_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function that fails twice then succeeds
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}

	// When: retrying
	err := retry(context.Background(), fastRetry(3), fn)

	// Then: it succeeds on the third attempt
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithResult_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), fastRetry(2), func() error {
		attempts++
		return errors.New("persistent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "failed after 2 retries")
}

func TestRetryWithResult_ZeroRetriesReturnsErrorUnchanged(t *testing.T) {
	cause := errors.New("once")

	err := retry(context.Background(), fastRetry(0), func() error { return cause })

	assert.Equal(t, cause, err)
}

func TestRetryWithResult_ShouldRetryStopsEarly(t *testing.T) {
	// Given: a non-retryable blocked error
	attempts := 0
	cfg := fastRetry(5)
	cfg.ShouldRetry = IsRetryable

	// When: retrying
	err := retry(context.Background(), cfg, func() error {
		attempts++
		return New(ErrCodeBlocked, "403", nil)
	})

	// Then: only one attempt is made
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeBlocked, GetCode(err))
}

func TestRetryWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := retry(ctx, fastRetry(3), func() error {
		attempts++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, attempts)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := RetryWithResult(context.Background(), fastRetry(3), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", New(ErrCodeNetworkTimeout, "slow", nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithResult_KeepsLastResultOnFailure(t *testing.T) {
	got, err := RetryWithResult(context.Background(), fastRetry(1), func() (int, error) {
		return 7, errors.New("nope")
	})

	assert.Error(t, err)
	assert.Equal(t, 7, got)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 2, cfg.MaxRetries)
	assert.NotNil(t, cfg.ShouldRetry)
	assert.True(t, cfg.ShouldRetry(NetworkError("timeout", nil)))
	assert.False(t, cfg.ShouldRetry(New(ErrCodeBlocked, "403", nil)))
}
