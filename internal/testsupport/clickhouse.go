package testsupport

import (
	"context"
	"testing"
	"time"

	"brandpulse/internal/adapters/clickhouse"
)

// ClickHouseFixture is a migrated ClickHouse connection. ClickHouse has no
// transactions, so tests write under a brand from Brand and the rows are
// deleted afterwards.
type ClickHouseFixture struct {
	Client *clickhouse.Client
}

// NewTestClickHouse connects using CLICKHOUSE_* (skipping when unset) and
// applies the schema
func NewTestClickHouse(t *testing.T) *ClickHouseFixture {
	t.Helper()

	client, err := clickhouse.NewClient(ClickHouseConfigFromEnv(t))
	if err != nil {
		t.Fatalf("clickhouse: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("clickhouse schema: %v", err)
	}
	return &ClickHouseFixture{Client: client}
}

// Brand returns a fresh brand name whose archived mentions are removed
// when the test ends
func (f *ClickHouseFixture) Brand(t *testing.T, prefix string) string {
	t.Helper()
	brand := UniqueBrand(prefix)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.Client.Conn().Exec(ctx, "ALTER TABLE brand_mentions DELETE WHERE brand = ?", brand)
	})
	return brand
}
