package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseWorker_FailureStreak(t *testing.T) {
	w := NewBaseWorker("streak", time.Minute, true)

	w.RecordError(errors.New("newsapi 429"), 10*time.Millisecond)
	w.RecordError(errors.New("newsapi 429"), 30*time.Millisecond)

	h := w.Health()
	assert.Equal(t, 2, h.ConsecutiveFailures)
	assert.Equal(t, int64(2), h.ErrorCount)
	assert.True(t, h.LastSuccess.IsZero())
	assert.Equal(t, 20*time.Millisecond, h.AvgDuration)

	w.RecordRun(20 * time.Millisecond)
	h = w.Health()
	assert.Zero(t, h.ConsecutiveFailures)
	assert.NoError(t, h.LastError)
	assert.Equal(t, int64(3), h.RunCount)
	assert.False(t, h.LastSuccess.IsZero())
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	w := NewBaseWorker("monitor", time.Minute, true)
	check := HealthCheck(w, 2)

	require.NoError(t, check(ctx), "no runs yet")

	w.RecordError(errors.New("timeout"), time.Millisecond)
	require.NoError(t, check(ctx), "below the limit")

	w.RecordError(errors.New("timeout"), time.Millisecond)
	err := check(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 consecutive failed runs")
	assert.Contains(t, err.Error(), "timeout")

	w.RecordRun(time.Millisecond)
	assert.NoError(t, check(ctx))
}

func TestHealthCheck_DisabledWorker(t *testing.T) {
	w := NewBaseWorker("off", time.Minute, false)
	w.RecordError(errors.New("x"), 0)
	w.RecordError(errors.New("x"), 0)

	assert.NoError(t, HealthCheck(w, 1)(context.Background()))
}
