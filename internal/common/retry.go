package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/vigil/internal/service"
)

var (
	// ErrRateLimit is returned by collaborators that were throttled. The next
	// retry waits the full MaxDelay.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries wraps the last failure once every attempt is used.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError marks whether an error is worth another attempt.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Permanent marks err as final. WithRetry returns it unwrapped.
func Permanent(err error) error {
	return &RetryableError{Err: err, Retryable: false}
}

// backoff yields exponentially growing waits capped at max.
type backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
}

func newBackoff(opts service.RetryOptions) backoff {
	b := backoff{next: opts.InitialDelay, max: opts.MaxDelay, multiplier: opts.Multiplier}
	if b.next <= 0 {
		b.next = 100 * time.Millisecond
	}
	if b.max <= 0 {
		b.max = 30 * time.Second
	}
	if b.multiplier <= 0 {
		b.multiplier = 2
	}
	return b
}

// wait returns how long to sleep after err and advances the schedule.
func (b *backoff) wait(err error) time.Duration {
	if errors.Is(err, ErrRateLimit) {
		return b.max
	}
	d := b.next
	b.next = min(time.Duration(float64(b.next)*b.multiplier), b.max)
	return d
}

// WithRetry runs operation until it succeeds, returns a Permanent error, ctx
// ends, or opts.MaxAttempts (default 3) is used up. Balance sources, the
// scam judge and exports use it. The safety workflow never retries.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	schedule := newBackoff(opts)

	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil {
			return nil
		}

		var marked *RetryableError
		if errors.As(err, &marked) && !marked.Retryable {
			return marked.Err
		}
		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempts, err)
		}

		delay := schedule.wait(err)
		slog.Warn("Operation failed, retrying", "attempt", attempt, "max_attempts", attempts, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
