// Package resilience wraps calls to external collaborators (embedding and
// generation backends) with bounded retries and doubling backoff.
//
// The analyzer treats collaborator hiccups as transient: a failed embedding
// or generation call is retried a small, configured number of times before
// the error is surfaced to the caller, which then degrades explicitly
// (unindexed chunks, degraded answers) instead of failing the whole run.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Default retry parameters, used when the corresponding [Config] field is zero.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 8 * time.Second
)

// ErrAttemptsExhausted is wrapped into the error returned when every attempt
// failed. Check with errors.Is to distinguish exhaustion from context
// cancellation.
var ErrAttemptsExhausted = errors.New("resilience: attempts exhausted")

// Config bounds one retried operation.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	// Zero or negative means DefaultMaxAttempts.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt; it doubles
	// after every failure. Zero means DefaultInitialBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubling. Zero means DefaultMaxBackoff.
	MaxBackoff time.Duration

	// Timeout, when positive, bounds each individual attempt with a derived
	// context deadline.
	Timeout time.Duration
}

// withDefaults returns cfg with zero fields replaced by the defaults.
func (cfg Config) withDefaults() Config {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	return cfg
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. The backoff between attempts doubles from cfg.InitialBackoff up
// to cfg.MaxBackoff.
//
// op names the operation in log output ("embed batch", "generate answer").
func Do(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, cfg, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult is [Do] for operations that return a value. This is a
// package-level function because Go does not support method-level type
// parameters.
func DoWithResult[R any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context) (R, error)) (R, error) {
	cfg = cfg.withDefaults()

	var (
		zero    R
		lastErr error
		backoff = cfg.InitialBackoff
	)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, cfg.Timeout, fn)
		if err == nil {
			if attempt > 1 {
				slog.Info("operation recovered after retry", "op", op, "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		// A cancelled parent context is not retriable.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < cfg.MaxAttempts {
			slog.Warn("operation failed, backing off",
				"op", op, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			backoff *= 2
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}

	return zero, fmt.Errorf("%w: %s after %d attempts: %v", ErrAttemptsExhausted, op, cfg.MaxAttempts, lastErr)
}

// runAttempt executes one attempt, applying the per-attempt timeout when set.
func runAttempt[R any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (R, error)) (R, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
