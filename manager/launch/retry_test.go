package launch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	err := RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not ready")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	err := RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		return errors.New("still not ready")
	})

	require.Error(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryWithBackoffRespectsContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 100, InitialDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("never ready")
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}
