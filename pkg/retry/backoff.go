package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config bounds a retry loop.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Factor    float64
	Jitter    bool
}

// DefaultConfig covers the startup case where a backing service is still
// coming up: roughly two minutes of patience before giving up.
func DefaultConfig() Config {
	return Config{
		Attempts:  10,
		BaseDelay: 2 * time.Second,
		MaxDelay:  60 * time.Second,
		Factor:    2.0,
		Jitter:    true,
	}
}

// WithBackoff runs fn until it succeeds, the attempts are exhausted, or the
// context is canceled. Delays grow by Factor up to MaxDelay.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	delay := cfg.BaseDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		if attempt >= cfg.Attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, lastErr)
		}

		wait := delay
		if cfg.Jitter {
			// +/-15% so restarting replicas do not reconnect in lockstep
			wait += time.Duration((rand.Float64() - 0.5) * 0.3 * float64(delay))
		}

		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.Attempts),
			zap.Duration("retry_in", wait),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Factor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
