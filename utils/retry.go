package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy is a bounded retry strategy: at most MaxAttempts tries, sleeping a
// randomized delay in [MinDelay, MaxDelay] between them. When the attempts are
// used up the caller decides the terminal action (usually: skip the target).
type Policy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Logger      *Logger
}

// Do runs fn until it succeeds, the attempts are exhausted or ctx is done.
// It returns the number of attempts made and the last error (nil on success).
func (p *Policy) Do(ctx context.Context, operationName string, fn func(attempt int) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if attempt < attempts {
			delay := RandomDelay(p.MinDelay, p.MaxDelay)
			if p.Logger != nil {
				p.Logger.Warn("[retry] %s failed (attempt %d/%d): %s; retrying in %v",
					operationName, attempt, attempts, Truncate(lastErr.Error(), 80), delay)
			}
			if err := Sleep(ctx, delay); err != nil {
				return attempt, err
			}
		}
	}

	return attempts, fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// RandomDelay returns a duration uniformly drawn from [min, max].
func RandomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
