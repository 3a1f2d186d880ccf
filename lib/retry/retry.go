package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy is a fixed-delay retry budget. Retryable decides whether an
// error is worth another attempt; anything else fails immediately.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget runs out. The delay between attempts is fixed; the
// context is checked before every sleep so cancellation is not stuck
// behind a backoff.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !p.retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		slog.Warn("retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", attempts,
			"err", err,
		)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return zero, fmt.Errorf("%s: retry budget exhausted after %d attempts: %w", op, attempts, lastErr)
}
