package sentiment

import (
	"context"

	"brandpulse/internal/domain/document"
)

// Scorer annotates documents. It returns exactly one annotation per document
// in input order, or fails the whole batch with errors.ErrScoringUnavailable.
type Scorer interface {
	Score(ctx context.Context, docs []document.Document) ([]Annotation, error)
}
