// Package resilience retries calls to unreliable upstreams.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// Exponential multiplies the delay by Multiplier after each attempt.
	Exponential Backoff = iota
	// Linear waits InitialBackoff times the attempt number.
	Linear
)

// RetryConfig controls how many times and how patiently a call is retried.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Backoff picks the delay curve. Default: Exponential.
	Backoff Backoff

	// InitialBackoff is the base delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales exponential delays. Default: 2.0.
	Multiplier float64

	// JitterFraction adds ±fraction random jitter. Default: 0.
	JitterFraction float64

	// ShouldRetry overrides the IsTransient check.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number
	// that just failed and its error.
	OnRetry func(attempt int, err error)

	// OnExhausted is called once when every attempt failed transiently.
	OnExhausted func(attempts int, err error)
}

// DefaultRetryConfig returns an exponential policy for generic API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// LinearRetryConfig waits backoff, 2*backoff, ... between attempts.
func LinearRetryConfig(maxAttempts int, backoff time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Backoff = Linear
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if backoff > 0 {
		cfg.InitialBackoff = backoff
	}
	return cfg
}

// Do runs fn until it succeeds, fails permanently, exhausts its attempts
// or ctx is cancelled.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(lastErr) {
			return zero, lastErr
		}

		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(computeBackoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	if cfg.OnExhausted != nil {
		cfg.OnExhausted(cfg.MaxAttempts, lastErr)
	}
	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// computeBackoff returns the delay after the zero-based attempt failed.
func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	var delay float64
	switch cfg.Backoff {
	case Linear:
		delay = float64(cfg.InitialBackoff) * float64(attempt+1)
	default:
		delay = float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	}
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(service, operation string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation", append([]zap.Field{
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}, fields...)...)
	}
}
