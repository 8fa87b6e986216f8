package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ErrRetriesExhausted matches any *ExhaustedError via errors.Is.
var ErrRetriesExhausted = errors.New("retries exhausted")

// BackoffFunc returns the delay to wait after the given failed attempt.
// Attempts are numbered from 1.
type BackoffFunc func(attempt int) time.Duration

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	Name            string
	MaxAttempts     int
	Backoff         BackoffFunc
	Retryable       func(error) bool
	RetryableErrors []error
	Sleep           SleepFunc
	Logger          *zap.Logger
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Backoff:     Exponential(100*time.Millisecond, 10*time.Second, 2.0, 0.1),
		Logger:      zap.NewNop(),
	}
}

// Linear waits attempt × step.
func Linear(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// ExponentialCapped waits min(2^(attempt-1) × base, max) with no jitter.
func ExponentialCapped(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := float64(base) * math.Pow(2, float64(attempt-1))
		if d > float64(max) {
			return max
		}
		return time.Duration(d)
	}
}

// Exponential grows from initial by multiplier up to max, with a random
// jitter of ±jitterFraction.
func Exponential(initial, max time.Duration, multiplier, jitterFraction float64) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := math.Min(float64(max), float64(initial)*math.Pow(multiplier, float64(attempt-1)))
		return addJitter(time.Duration(d), jitterFraction)
	}
}

func Do(ctx context.Context, cfg Config, operation func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff == nil {
		cfg.Backoff = Exponential(100*time.Millisecond, 10*time.Second, 2.0, 0.1)
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			if attempt > 1 {
				cfg.Logger.Info("Operation succeeded after retry",
					zap.String("operation", cfg.Name),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		lastErr = err

		if !cfg.isRetryable(err) {
			cfg.Logger.Debug("Error not retryable",
				zap.String("operation", cfg.Name),
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Backoff(attempt)
		cfg.Logger.Warn("Operation failed, retrying",
			zap.String("operation", cfg.Name),
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("delay", delay),
		)

		if err := cfg.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}

func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}

func (cfg Config) isRetryable(err error) bool {
	if cfg.Retryable != nil {
		return cfg.Retryable(err)
	}

	if len(cfg.RetryableErrors) == 0 {
		return true
	}

	for _, retryableErr := range cfg.RetryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}

	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	if rand.Intn(2) == 0 {
		return duration - jitter
	}
	return duration + jitter
}
