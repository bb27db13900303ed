// Package resilience holds small fault handling primitives: bounded retry
// with exponential backoff, and a circuit breaker for flaky dependencies.
package resilience

import (
	"context"
	"time"
)

type RetryConfig struct {
	MaxAttempts       uint
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig suits short lived contention such as a locked
// database file.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2,
	}
}

type RetryHook interface {
	OnRetryAttempt(ctx context.Context, attempt uint, err error, nextDelay time.Duration)
	OnRetrySuccess(ctx context.Context, attempts uint, totalDuration time.Duration)
	OnRetryFailure(ctx context.Context, err error, attempts uint, totalDuration time.Duration)
}

type Operation func(ctx context.Context) error

type RetryOption func(*retryOptions)

type retryOptions struct {
	hook    RetryHook
	retryIf func(error) bool
}

func WithHook(hook RetryHook) RetryOption {
	return func(o *retryOptions) {
		o.hook = hook
	}
}

// WithRetryIf limits retries to errors the predicate accepts. Everything
// else fails on the first attempt.
func WithRetryIf(retryIf func(error) bool) RetryOption {
	return func(o *retryOptions) {
		o.retryIf = retryIf
	}
}

// Retry runs op until it succeeds, attempts run out, or the context ends.
// The last operation error is returned unwrapped so callers can keep using
// errors.Is on it.
func Retry(ctx context.Context, cfg RetryConfig, op Operation, opts ...RetryOption) error {
	options := retryOptions{
		retryIf: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(&options)
	}

	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	delay := cfg.InitialDelay

	var err error
	for attempt := uint(1); ; attempt++ {
		err = op(ctx)
		if err == nil {
			if options.hook != nil {
				options.hook.OnRetrySuccess(ctx, attempt, time.Since(start))
			}
			return nil
		}

		if attempt >= cfg.MaxAttempts || !options.retryIf(err) {
			if options.hook != nil {
				options.hook.OnRetryFailure(ctx, err, attempt, time.Since(start))
			}
			return err
		}

		if options.hook != nil {
			options.hook.OnRetryAttempt(ctx, attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			if options.hook != nil {
				options.hook.OnRetryFailure(ctx, ctx.Err(), attempt, time.Since(start))
			}
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
