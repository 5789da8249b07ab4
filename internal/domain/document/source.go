package document

import "context"

// Source fetches recent documents mentioning a brand, newest first.
// Upstream failures are reported as errors.ErrSourceUnavailable.
type Source interface {
	Fetch(ctx context.Context, q Query) (Batch, error)
}

// Fallback supplies a substitute batch when the Source fails.
// A miss returns an empty batch and no error.
type Fallback interface {
	Fallback(ctx context.Context, q Query) (Batch, error)
}

// Cache stores successful batches so they can serve as a later fallback
type Cache interface {
	Fallback
	Store(ctx context.Context, brand string, batch Batch) error
}
