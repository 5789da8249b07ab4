package ai

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"brandpulse/pkg/errors"
)

// takeToken refills the bucket at KEYS[1] and takes one token.
// ARGV: tokens per millisecond, burst, now in ms.
// Returns 0 when a token was taken, otherwise the ms until one is available.
var takeToken = redis.NewScript(`
local per_ms = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens = tonumber(state[1]) or burst
local at = tonumber(state[2]) or now

tokens = math.min(burst, tokens + math.max(0, now - at) * per_ms)

local wait = 0
if tokens >= 1 then
    tokens = tokens - 1
else
    wait = math.ceil((1 - tokens) / per_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'at', now)
redis.call('PEXPIRE', KEYS[1], math.ceil(burst / per_ms) + 1000)
return wait
`)

// RedisRateLimiter is a token bucket kept in redis, so every brandpulse
// replica spends the same provider quota
type RedisRateLimiter struct {
	client   *redis.Client
	provider ProviderName
	key      string
	perMs    float64
	burst    int
}

// NewRedisRateLimiter allows reqPerMinute with the given burst. A
// non-positive burst becomes 10% of the rate, at least 1.
func NewRedisRateLimiter(client *redis.Client, provider ProviderName, reqPerMinute float64, burst int) *RedisRateLimiter {
	if burst <= 0 {
		burst = max(1, int(reqPerMinute/10))
	}
	return &RedisRateLimiter{
		client:   client,
		provider: provider,
		key:      "brandpulse:rate_limit:ai:" + provider.String(),
		perMs:    reqPerMinute / float64(time.Minute/time.Millisecond),
		burst:    burst,
	}
}

// Wait takes a token, sleeping as long as the bucket says. Running out of
// ctx first is a RateLimitError.
func (l *RedisRateLimiter) Wait(ctx context.Context) error {
	for {
		wait, err := l.take(ctx)
		if err != nil {
			return err
		}
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &RateLimitError{Provider: l.provider, Err: errors.Join(errors.ErrRateLimitExceeded, ctx.Err())}
		case <-timer.C:
		}
	}
}

func (l *RedisRateLimiter) take(ctx context.Context) (time.Duration, error) {
	ms, err := takeToken.Run(ctx, l.client, []string{l.key}, l.perMs, l.burst, time.Now().UnixMilli()).Int64()
	if err != nil {
		return 0, errors.Wrapf(err, "redis rate limiter %s", l.provider)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Reset empties the shared bucket state
func (l *RedisRateLimiter) Reset(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}
