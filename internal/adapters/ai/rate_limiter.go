package ai

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"brandpulse/internal/adapters/ratelimit"
)

// RateLimiter gates requests to a model provider
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NoOpLimiter never blocks
type NoOpLimiter struct{}

func NewNoOpLimiter() *NoOpLimiter { return &NoOpLimiter{} }

func (NoOpLimiter) Wait(context.Context) error { return nil }

// NewRateLimiter picks a limiter for a provider: shared through redis when
// a client is given, in process otherwise. reqPerMinute <= 0 disables it.
func NewRateLimiter(provider ProviderName, reqPerMinute int, redisClient *goredis.Client) RateLimiter {
	switch {
	case reqPerMinute <= 0:
		return NewNoOpLimiter()
	case redisClient != nil:
		return NewRedisRateLimiter(redisClient, provider, float64(reqPerMinute), 0)
	default:
		return ratelimit.NewLimiter("ai-"+provider.String(), reqPerMinute)
	}
}

// RateLimitError is a provider refusing or the local quota running out.
// Callers treat it as transient.
type RateLimitError struct {
	Provider ProviderName
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }
