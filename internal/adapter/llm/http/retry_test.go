package http_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/bkyoung/reviewgate/internal/adapter/llm/http"
)

func fastRetryConfig(maxRetries int) llmhttp.RetryConfig {
	return llmhttp.RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return llmhttp.NewServiceUnavailableError("engine", "flaky")
		}
		return nil
	}

	err := llmhttp.RetryWithBackoff(context.Background(), op, fastRetryConfig(5))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return llmhttp.NewAuthenticationError("engine", "bad key")
	}

	err := llmhttp.RetryWithBackoff(context.Background(), op, fastRetryConfig(5))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return llmhttp.NewRateLimitError("engine", "429")
	}

	err := llmhttp.RetryWithBackoff(context.Background(), op, fastRetryConfig(2))
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryGenericErrorNotRetried(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return errors.New("plain failure")
	}

	err := llmhttp.RetryWithBackoff(context.Background(), op, fastRetryConfig(5))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		return nil
	}, fastRetryConfig(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoffIsBounded(t *testing.T) {
	config := llmhttp.RetryConfig{
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
	}

	for attempt := 0; attempt < 10; attempt++ {
		backoff := llmhttp.ExponentialBackoff(attempt, config)
		assert.GreaterOrEqual(t, backoff, time.Duration(0))
		assert.LessOrEqual(t, backoff, config.MaxBackoff)
	}
}
