package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/pkg/errors"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := NewLimiter("newsapi", 60) // 1 rps, burst 6

	for i := 0; i < 6; i++ {
		assert.True(t, l.Allow(), "token %d within burst", i)
	}
	assert.False(t, l.Allow())
}

func TestLimiter_WaitRespectsDeadline(t *testing.T) {
	l := NewLimiter("slow", 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded) || errors.Is(err, context.DeadlineExceeded))
}

func TestLimiter_DisabledWhenNonPositive(t *testing.T) {
	l := NewLimiter("unbounded", 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Equal(t, "unbounded", l.Name())
}
