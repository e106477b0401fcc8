package chatclient

import (
	"context"
	"time"
)

// RetryPolicy controls how ChatCompletion behaves across attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, the first included.
	MaxAttempts int

	// BaseDelay is the backoff after the first failed attempt; it doubles
	// per attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// RateLimitDelay applies when the gateway rate-limits without telling
	// us how long to wait.
	RateLimitDelay time.Duration
}

// DefaultRetryPolicy matches the production app shipped with: three
// attempts, 1s backoff doubling to a 10s cap, 60s rate-limit fallback.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: 60 * time.Second,
	}
}

// backoff returns the delay before retrying after the given 1-based attempt.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
