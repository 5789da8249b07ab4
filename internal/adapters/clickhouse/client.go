package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"brandpulse/internal/adapters/config"
	"brandpulse/pkg/errors"
)

// schema is the mention archive, partitioned by month and kept for a year
const schema = `
CREATE TABLE IF NOT EXISTS brand_mentions (
	run_id       String,
	brand        LowCardinality(String),
	document_id  String,
	source       LowCardinality(String),
	title        String,
	url          String,
	label        LowCardinality(String),
	score        Float64,
	keywords     Array(String),
	published_at DateTime64(3, 'UTC'),
	collected_at DateTime64(3, 'UTC')
) ENGINE = MergeTree
PARTITION BY toYYYYMM(collected_at)
ORDER BY (brand, collected_at, document_id)
TTL toDateTime(collected_at) + INTERVAL 365 DAY
`

// Client wraps ClickHouse connection
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client
func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to clickhouse")
	}

	// Verify connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to ping clickhouse")
	}

	return &Client{conn: conn}, nil
}

// Conn returns the underlying ClickHouse connection
func (c *Client) Conn() driver.Conn {
	return c.conn
}

// EnsureSchema creates the mention archive table if missing
func (c *Client) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply clickhouse schema")
	}
	return nil
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Health checks ClickHouse connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.conn.Ping(ctx)
}
