package redis

import (
	"context"
	"strings"
	"time"

	"brandpulse/internal/domain/document"
	"brandpulse/pkg/errors"
)

// Compile-time check
var _ document.Cache = (*DocumentCache)(nil)

// Store is the JSON key/value subset of the redis adapter the cache needs
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// DocumentCache keeps the last good document batch per brand so a later run
// can fall back to it when the source is down.
type DocumentCache struct {
	store Store
	ttl   time.Duration
}

// NewDocumentCache creates a cache whose entries expire after ttl
func NewDocumentCache(store Store, ttl time.Duration) *DocumentCache {
	return &DocumentCache{store: store, ttl: ttl}
}

type cachedBatch struct {
	Documents      []document.Document `json:"documents"`
	TotalAvailable int                 `json:"total_available"`
	StoredAt       time.Time           `json:"stored_at"`
}

// Store saves a successful batch for the brand
func (c *DocumentCache) Store(ctx context.Context, brand string, batch document.Batch) error {
	entry := cachedBatch{
		Documents:      batch.Documents,
		TotalAvailable: batch.TotalAvailable,
		StoredAt:       time.Now().UTC(),
	}
	if err := c.store.Set(ctx, key(brand), entry, c.ttl); err != nil {
		return errors.Wrapf(err, "cache documents for %s", brand)
	}
	return nil
}

// Fallback returns the cached batch, filtered to the query window and size.
// A miss is an empty batch and no error.
func (c *DocumentCache) Fallback(ctx context.Context, q document.Query) (document.Batch, error) {
	var entry cachedBatch
	err := c.store.Get(ctx, key(q.Brand), &entry)
	if errors.Is(err, errors.ErrNotFound) {
		return document.Batch{Fallback: true}, nil
	}
	if err != nil {
		return document.Batch{}, errors.Wrapf(err, "read cached documents for %s", q.Brand)
	}

	cutoff := time.Now().AddDate(0, 0, -q.DaysBack)
	docs := make([]document.Document, 0, len(entry.Documents))
	for _, d := range entry.Documents {
		if q.DaysBack > 0 && !d.PublishedAt.IsZero() && d.PublishedAt.Before(cutoff) {
			continue
		}
		if q.MaxDocuments > 0 && len(docs) == q.MaxDocuments {
			break
		}
		docs = append(docs, d)
	}

	return document.Batch{Documents: docs, TotalAvailable: entry.TotalAvailable, Fallback: true}, nil
}

func key(brand string) string {
	return "brandpulse:documents:" + strings.ToLower(strings.TrimSpace(brand))
}
