package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
)

// Compile-time check
var _ sentiment.Repository = (*MentionRepository)(nil)

// MentionRepository implements sentiment.Repository using ClickHouse
type MentionRepository struct {
	conn  driver.Conn
	table string
}

// NewMentionRepository creates a new mention repository over brand_mentions
func NewMentionRepository(conn driver.Conn) *MentionRepository {
	return &MentionRepository{conn: conn, table: "brand_mentions"}
}

// InsertMentions appends scored mentions in a single batch
func (r *MentionRepository) InsertMentions(ctx context.Context, mentions []sentiment.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	started := time.Now()

	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+r.table)
	if err != nil {
		metrics.RecordDBQuery("clickhouse", "insert_mentions", time.Since(started), err)
		return errors.Wrap(err, "prepare mention batch")
	}

	for i := range mentions {
		if err := batch.AppendStruct(&mentions[i]); err != nil {
			_ = batch.Abort()
			metrics.RecordDBQuery("clickhouse", "insert_mentions", time.Since(started), err)
			return errors.Wrapf(err, "append mention %s", mentions[i].DocumentID)
		}
	}

	err = batch.Send()
	metrics.RecordDBQuery("clickhouse", "insert_mentions", time.Since(started), err)
	if err != nil {
		return errors.Wrap(err, "send mention batch")
	}
	return nil
}

// GetBrandDaily returns per-day sentiment rollups for a brand, oldest first
func (r *MentionRepository) GetBrandDaily(ctx context.Context, brand string, since time.Time) ([]sentiment.BrandDaily, error) {
	started := time.Now()

	var rows []sentiment.BrandDaily
	query := `
		SELECT
			toStartOfDay(collected_at) AS day,
			count() AS mentions,
			avg(score) AS avg_score,
			countIf(label = 'negative') AS negative_count,
			countIf(label = 'positive') AS positive_count
		FROM ` + r.table + `
		WHERE brand = ? AND collected_at >= ?
		GROUP BY day
		ORDER BY day ASC`

	err := r.conn.Select(ctx, &rows, query, brand, since)
	metrics.RecordDBQuery("clickhouse", "brand_daily", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrapf(err, "brand daily rollup for %s", brand)
	}
	return rows, nil
}
