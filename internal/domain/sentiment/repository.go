package sentiment

import (
	"context"
	"time"
)

// Repository archives scored mentions (ClickHouse)
type Repository interface {
	InsertMentions(ctx context.Context, mentions []Mention) error
	GetBrandDaily(ctx context.Context, brand string, since time.Time) ([]BrandDaily, error)
}
