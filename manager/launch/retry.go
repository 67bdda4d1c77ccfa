package launch

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures exponential-backoff retry for launchers that
// must poll a not-yet-ready resource (a TCP port the adapter hasn't
// opened yet, typically).
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig bounds the total retry window to roughly 2s, enough
// to cover the usual gap between an adapter process starting and its TCP
// listener coming up.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  8,
	InitialDelay: 25 * time.Millisecond,
	MaxDelay:     400 * time.Millisecond,
	Multiplier:   2.0,
}

// RetryWithBackoff runs operation until it succeeds, ctx is done, or
// MaxAttempts is exhausted.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, operation func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := operation(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts, last error: %w", cfg.MaxAttempts, lastErr)
}
