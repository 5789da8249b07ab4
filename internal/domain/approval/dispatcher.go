package approval

import (
	"context"

	"brandpulse/internal/domain/response"
)

// Publisher releases auto-approved responses
type Publisher interface {
	Publish(ctx context.Context, runID, brand string, r response.GeneratedResponse, d Decision) error
}

// ReviewQueue hands pending responses to human reviewers without waiting
type ReviewQueue interface {
	Enqueue(ctx context.Context, req ReviewRequest) error
}
