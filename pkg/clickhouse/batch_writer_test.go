package clickhouse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink[T any] struct {
	mu      sync.Mutex
	batches [][]T
	err     error
}

func (s *sink[T]) flush(ctx context.Context, batch []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *sink[T]) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *sink[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestBatchWriter_FlushOnMaxSize(t *testing.T) {
	out := &sink[string]{}
	bw := NewBatchWriter(BatchWriterConfig[string]{
		FlushFunc:    out.flush,
		TableName:    "test_table",
		MaxBatchSize: 3,
		MaxAge:       10 * time.Second,
	})

	ctx := context.Background()
	require.NoError(t, bw.Add(ctx, "a", "b"))
	assert.Equal(t, 0, out.count())

	require.NoError(t, bw.Add(ctx, "c"))
	assert.Equal(t, 1, out.count())
	assert.Equal(t, []string{"a", "b", "c"}, out.batches[0])
	assert.Equal(t, 0, bw.BufferSize())
}

func TestBatchWriter_FlushOnTimer(t *testing.T) {
	out := &sink[int]{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    out.flush,
		TableName:    "test_table",
		MaxBatchSize: 100,
		MaxAge:       50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bw.Start(ctx)

	require.NoError(t, bw.Add(ctx, 1, 2))

	assert.Eventually(t, func() bool { return out.total() == 2 }, time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, bw.Stop(stopCtx))
	assert.False(t, bw.Running())
}

func TestBatchWriter_StopFlushesRemainder(t *testing.T) {
	out := &sink[int]{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    out.flush,
		MaxBatchSize: 100,
		MaxAge:       10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bw.Start(ctx)

	require.NoError(t, bw.Add(ctx, 1, 2, 3))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, bw.Stop(stopCtx))

	assert.Equal(t, 3, out.total())
	require.NoError(t, bw.Stop(stopCtx), "second stop is a no-op")
}

func TestBatchWriter_FailedRowsAreRetried(t *testing.T) {
	out := &sink[int]{err: errors.New("clickhouse down")}
	bw := NewBatchWriter(BatchWriterConfig[int]{FlushFunc: out.flush, MaxBatchSize: 2})
	ctx := context.Background()

	require.Error(t, bw.Add(ctx, 1, 2))
	assert.Equal(t, 2, bw.BufferSize(), "rows survive a failed insert")

	out.mu.Lock()
	out.err = nil
	out.mu.Unlock()

	require.NoError(t, bw.Add(ctx, 3))
	assert.Equal(t, [][]int{{1, 2}, {3}}, out.batches, "retried rows keep their order")
	assert.Zero(t, bw.BufferSize())
}

func TestBatchWriter_OverflowDropsOldest(t *testing.T) {
	out := &sink[int]{err: errors.New("clickhouse down")}
	bw := NewBatchWriter(BatchWriterConfig[int]{FlushFunc: out.flush, MaxBatchSize: 2, MaxBuffered: 4})
	ctx := context.Background()

	_ = bw.Add(ctx, 1, 2)
	_ = bw.Add(ctx, 3, 4)
	_ = bw.Add(ctx, 5, 6)

	assert.Equal(t, 4, bw.BufferSize())
	assert.Equal(t, int64(2), bw.Dropped())

	out.mu.Lock()
	out.err = nil
	out.mu.Unlock()

	require.NoError(t, bw.Flush(ctx))
	assert.Equal(t, [][]int{{3, 4}, {5, 6}}, out.batches)
}

func TestBatchWriter_FlushSplitsIntoBatches(t *testing.T) {
	out := &sink[int]{}
	bw := NewBatchWriter(BatchWriterConfig[int]{FlushFunc: out.flush, MaxBatchSize: 2, MaxAge: time.Hour})
	ctx := context.Background()

	// a single Add larger than a batch still inserts at most MaxBatchSize rows at a time
	require.NoError(t, bw.Add(ctx, 1, 2, 3, 4, 5))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, out.batches)
}

func TestBatchWriter_ContextCancelFlushes(t *testing.T) {
	out := &sink[int]{}
	bw := NewBatchWriter(BatchWriterConfig[int]{FlushFunc: out.flush, MaxBatchSize: 100, MaxAge: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	bw.Start(ctx)
	require.NoError(t, bw.Add(ctx, 7))
	cancel()

	assert.Eventually(t, func() bool { return out.total() == 1 }, time.Second, 10*time.Millisecond)
}

func TestBatchWriter_ConcurrentAdds(t *testing.T) {
	out := &sink[int]{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    out.flush,
		MaxBatchSize: 10,
		MaxAge:       time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bw.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_ = bw.Add(ctx, idx)
		}(i)
	}
	wg.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, bw.Stop(stopCtx))

	assert.Equal(t, 50, out.total())
}
