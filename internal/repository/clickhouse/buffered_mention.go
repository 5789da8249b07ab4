package clickhouse

import (
	"context"
	"time"

	"brandpulse/internal/domain/sentiment"
	chbatch "brandpulse/pkg/clickhouse"
)

// Compile-time check
var _ sentiment.Repository = (*BufferedMentionArchive)(nil)

// MentionStore is the synchronous archive the buffer flushes into
type MentionStore interface {
	InsertMentions(ctx context.Context, mentions []sentiment.Mention) error
	GetBrandDaily(ctx context.Context, brand string, since time.Time) ([]sentiment.BrandDaily, error)
}

// BufferedMentionArchive batches mention inserts across workflow runs.
// Reads go straight to the store and may miss rows still buffered.
type BufferedMentionArchive struct {
	store  MentionStore
	writer *chbatch.BatchWriter[sentiment.Mention]
}

// NewBufferedMentionArchive wraps store with a batch writer
func NewBufferedMentionArchive(store MentionStore, maxBatch int, maxAge time.Duration) *BufferedMentionArchive {
	return &BufferedMentionArchive{
		store: store,
		writer: chbatch.NewBatchWriter(chbatch.BatchWriterConfig[sentiment.Mention]{
			FlushFunc:    store.InsertMentions,
			TableName:    "brand_mentions",
			MaxBatchSize: maxBatch,
			MaxAge:       maxAge,
		}),
	}
}

// Start begins periodic flushing
func (a *BufferedMentionArchive) Start(ctx context.Context) {
	a.writer.Start(ctx)
}

// Stop flushes the buffer and stops the flush loop
func (a *BufferedMentionArchive) Stop(ctx context.Context) error {
	return a.writer.Stop(ctx)
}

// InsertMentions buffers the mentions; a full buffer is flushed inline
func (a *BufferedMentionArchive) InsertMentions(ctx context.Context, mentions []sentiment.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	return a.writer.Add(ctx, mentions...)
}

// GetBrandDaily reads rollups from the underlying store
func (a *BufferedMentionArchive) GetBrandDaily(ctx context.Context, brand string, since time.Time) ([]sentiment.BrandDaily, error) {
	return a.store.GetBrandDaily(ctx, brand, since)
}
