// File: internal/retry/retry.go

// Package retry implements the bounded retry engine used by every navigation
// and interaction site in the automation run. Retries are always bounded,
// delays grow exponentially with jitter, and exhaustion is reported as a
// typed error rather than a panic.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Operation is a retryable unit of work. The attempt counter is 1-based.
type Operation func(ctx context.Context, attempt int) error

// Options controls the retry loop.
type Options struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// operation runs at most MaxRetries+1 times.
	MaxRetries int

	// InitialDelay seeds the exponential backoff. Zero means 1s.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay. Zero means 30s.
	MaxDelay time.Duration

	// ShouldRetry filters errors. A nil func retries everything.
	ShouldRetry func(error) bool

	// OnRetry runs before each retry, typically a recovery hook. Panics and
	// errors inside it are swallowed and logged so a broken recovery step
	// never masks the original failure.
	OnRetry func(ctx context.Context, err error, attempt int, delay time.Duration)

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// ExhaustedError reports that all attempts failed. It wraps the last error.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Delay returns the backoff delay before retry number attempt (1-based):
// min(initial * 2^(attempt-1) + random(0..1s), max).
func (o Options) Delay(attempt int) time.Duration {
	o = o.withDefaults()
	backoff := float64(o.InitialDelay) * math.Pow(2, float64(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	d := time.Duration(backoff) + jitter
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// Do runs op with bounded retries. On success it returns nil. On exhaustion,
// or when ShouldRetry rejects an error, it returns an *ExhaustedError
// wrapping the last error. Context cancellation aborts between attempts.
func Do(ctx context.Context, op Operation, opts Options) error {
	opts = opts.withDefaults()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= opts.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return &ExhaustedError{Attempts: attempts, LastErr: lastErr}
		}

		attempts++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			opts.Logger.Debug("Error classified as non-retryable", zap.Error(err))
			return &ExhaustedError{Attempts: attempts, LastErr: err}
		}
		if attempt == opts.MaxRetries+1 {
			break
		}

		delay := opts.Delay(attempt)
		opts.Logger.Warn("Attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		runOnRetry(ctx, opts, err, attempt, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &ExhaustedError{Attempts: attempts, LastErr: lastErr}
		}
	}
	return &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// DoValue is the value-returning variant of Do.
func DoValue[T any](ctx context.Context, op func(ctx context.Context, attempt int) (T, error), opts Options) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context, attempt int) error {
		v, err := op(ctx, attempt)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts)
	return result, err
}

func runOnRetry(ctx context.Context, opts Options, err error, attempt int, delay time.Duration) {
	if opts.OnRetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Warn("Recovery hook panicked", zap.Any("panic", r))
		}
	}()
	opts.OnRetry(ctx, err, attempt, delay)
}

// PollUntil invokes predicate every interval until it returns true, the
// timeout elapses, or the context is cancelled. Predicate errors are treated
// as "not yet" so a transient probe failure never aborts the wait.
func PollUntil(ctx context.Context, predicate func(ctx context.Context) (bool, error), interval, timeout time.Duration) (bool, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := predicate(ctx)
		if ok {
			return true, nil
		}
		if err != nil && ctx.Err() != nil {
			return false, ctx.Err()
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
