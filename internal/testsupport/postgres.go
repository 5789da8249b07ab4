package testsupport

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"brandpulse/internal/adapters/postgres"
)

// PostgresFixture is an integration database with the brandpulse schema.
// Repositories under test get Tx; anything written there disappears when
// the test ends.
type PostgresFixture struct {
	DB *sqlx.DB
	Tx *sqlx.Tx

	done bool
}

// NewTestPostgres connects to the database named by POSTGRES_* (skipping
// the test when unset), migrates it and opens the test transaction.
func NewTestPostgres(t *testing.T) *PostgresFixture {
	t.Helper()
	ctx := context.Background()

	client, err := postgres.NewClient(PostgresConfigFromEnv(t))
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("postgres schema: %v", err)
	}

	tx, err := client.DB().BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("postgres begin: %v", err)
	}

	f := &PostgresFixture{DB: client.DB(), Tx: tx}
	t.Cleanup(f.Rollback)
	return f
}

// Rollback discards the test's writes. Safe to call more than once.
func (f *PostgresFixture) Rollback() {
	if f.done {
		return
	}
	f.done = true
	_ = f.Tx.Rollback()
}

// UniqueBrand returns a brand name no other test run uses, so assertions
// on per-brand queries are not disturbed by leftover rows.
func UniqueBrand(prefix string) string {
	return strings.ToLower(prefix) + "-" + uuid.NewString()[:8]
}
