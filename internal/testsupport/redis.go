package testsupport

import (
	"context"
	"testing"

	"brandpulse/internal/adapters/redis"
)

// NewTestRedis creates a redis adapter for integration tests. Keys written
// by the test are removed on cleanup.
func NewTestRedis(t *testing.T, keys ...string) *redis.Client {
	t.Helper()

	client, err := redis.NewClient(RedisConfigFromEnv(t))
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	t.Cleanup(func() {
		if len(keys) > 0 {
			_ = client.Delete(context.Background(), keys...)
		}
		_ = client.Close()
	})
	return client
}
