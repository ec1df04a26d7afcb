package httpclient

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const jitterFactor = 0.3

// RandomFunc returns a value in [0, 1)
type RandomFunc func() float64

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the latter case
type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff returns the wait before the retry that follows the given failed attempt:
//
//	exp   = BaseDelay * 2^(attempt-1)
//	delay = min(exp + rnd()*0.3*exp, MaxDelay)
//
// A nil rnd uses math/rand/v2.
func Backoff(p Policy, attempt int, rnd RandomFunc) time.Duration {
	if rnd == nil {
		rnd = rand.Float64
	}
	if attempt < 1 {
		attempt = 1
	}
	maxDelay := float64(p.MaxDelay)
	exp := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	delay := exp + rnd()*jitterFactor*exp
	// float comparison keeps huge exponents from overflowing Duration
	if delay > maxDelay || math.IsInf(delay, 0) || math.IsNaN(delay) {
		return p.MaxDelay
	}
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// sleepContext waits on a timer that is always stopped before returning.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
