package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/internal/testsupport"
	"brandpulse/pkg/errors"
)

func TestClient_JSONRoundTripAndMiss(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	const key = "brandpulse:test:client"
	client := testsupport.NewTestRedis(t, key)
	ctx := context.Background()

	type payload struct {
		Brand string  `json:"brand"`
		Score float64 `json:"score"`
	}

	require.NoError(t, client.Set(ctx, key, payload{Brand: "Acme", Score: -0.4}, time.Minute))

	var got payload
	require.NoError(t, client.Get(ctx, key, &got))
	assert.Equal(t, payload{Brand: "Acme", Score: -0.4}, got)

	require.NoError(t, client.Delete(ctx, key))
	err := client.Get(ctx, key, &got)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestClient_AcquireLock(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewTestRedis(t, "brandpulse:lock:test:acme")
	ctx := context.Background()

	ok, err := client.AcquireLock(ctx, "test:acme", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, "test:acme", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim within ttl must fail")
}
