package alert

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows alert listings
type Filter struct {
	Brand    string
	Statuses []Status
	Limit    int
}

// Repository persists alerts (PostgreSQL)
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	List(ctx context.Context, f Filter) ([]*Alert, error)
	Acknowledge(ctx context.Context, id uuid.UUID, assignee string) error
	Resolve(ctx context.Context, id uuid.UUID) error
}

// Escalator raises a crisis to the people who must act on it
type Escalator interface {
	Escalate(ctx context.Context, e Escalation) error
}
