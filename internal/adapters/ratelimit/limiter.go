package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"brandpulse/pkg/errors"
)

// Limiter throttles outbound calls to an upstream API
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a limiter allowing requestsPerMinute with a burst of
// 10% of the per-minute limit (at least 1). A non-positive limit disables throttling.
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1), name: name}
	}

	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		name:    name,
	}
}

// Wait blocks until a token is available or ctx is done.
// A wait that cannot finish before the deadline is ErrRateLimitExceeded.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "rate limiter %s", l.name)
		}
		return errors.Wrapf(errors.ErrRateLimitExceeded, "rate limiter %s: %v", l.name, err)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name identifies the limiter in logs
func (l *Limiter) Name() string {
	return l.name
}
