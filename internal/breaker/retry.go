package breaker

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"NewsPublisher/internal/domain"
)

// RetryConfig bounds the within-cycle retry of a downstream call. Cycles
// themselves are never retried; the next scheduled invocation is the
// outer retry loop.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// DefaultRetryConfig retries three times, 200ms doubling, capped at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Retryable lets an error opt out of retries; permanent platform
// rejections implement it with false.
type Retryable interface {
	Retryable() bool
}

// DoWithRetry runs fn with bounded exponential backoff. A non-retryable
// error or a cancelled context ends the attempts immediately.
func DoWithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2.0
	}

	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg, attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrCircuitOpen) {
			return err
		}
		var r Retryable
		if errors.As(err, &r) && !r.Retryable() {
			return err
		}
	}
	return err
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > max {
		delay = max
	}
	if cfg.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	return time.Duration(delay)
}
