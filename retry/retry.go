// Package retry provides an explicit retry policy value: an attempt budget
// plus a jittered pause range applied between attempts.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned by Do when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a recoverable operation. The zero value performs one
// attempt with no pause.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// MinDelay and MaxDelay bound the random pause between attempts.
	// Equal values give a fixed pause.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Fixed returns a policy with a constant pause between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, MinDelay: delay, MaxDelay: delay}
}

// Jitter returns a policy pausing a random duration in [lo, hi].
func Jitter(attempts int, lo, hi time.Duration) Policy {
	return Policy{MaxAttempts: attempts, MinDelay: lo, MaxDelay: hi}
}

// Attempts returns the effective attempt budget (at least 1).
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay draws the next pause duration.
func (p Policy) Delay() time.Duration {
	lo, hi := p.MinDelay, p.MaxDelay
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Pause sleeps for Delay() or until ctx is done. It returns the slept
// duration and ctx.Err() when interrupted.
func (p Policy) Pause(ctx context.Context) (time.Duration, error) {
	return Sleep(ctx, p.Delay())
}

// Do runs fn until it succeeds or the attempt budget is spent, pausing
// between attempts. attempt is 1-based. The last error is joined with
// ErrExhausted when every attempt failed.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.Attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(ctx, attempt); lastErr == nil {
			return nil
		}
		if attempt < p.Attempts() {
			if _, err := p.Pause(ctx); err != nil {
				return err
			}
		}
	}
	return errors.Join(ErrExhausted, lastErr)
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return d, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
