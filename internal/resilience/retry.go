package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig tunes the exponential-backoff retry loop used by [Retry].
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Each subsequent delay
	// doubles. Default: 200ms.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay. Default: 2s.
	MaxDelay time.Duration

	// Jitter is the fraction of the computed delay (0 to 1) applied as
	// random jitter, to avoid synchronised retry storms across sessions.
	// Default: 0.2.
	Jitter float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 2 * time.Second
	}
	if c.Jitter <= 0 {
		c.Jitter = 0.2
	}
	return c
}

// Retry calls fn until it succeeds, ctx is cancelled, or MaxAttempts is
// exhausted, sleeping an exponentially increasing, jittered delay between
// attempts. Returns the last error if every attempt fails.
func Retry(ctx context.Context, cfg RetryConfig, name string, fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := delay
		if sleep > cfg.MaxDelay {
			sleep = cfg.MaxDelay
		}
		sleep += time.Duration(rand.Float64() * cfg.Jitter * float64(sleep))

		slog.Warn("retrying after failure",
			"name", name, "attempt", attempt, "max_attempts", cfg.MaxAttempts,
			"delay", sleep, "error", lastErr)

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(sleep):
		}
		delay *= 2
	}
	return lastErr
}
