//go:build integration

package changelog

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/postgres"
)

// Run with:
//
//	go test -tags=integration ./internal/changelog/...
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "glossary_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "glossary"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	db, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresStore_RecordAndLatest(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	s := NewPostgresStore(db)
	require.NoError(t, s.EnsureSchema(ctx))
	_, err := db.DB.ExecContext(ctx, `TRUNCATE glossary_changelog`)
	require.NoError(t, err)

	for gen := uint64(1); gen <= 2; gen++ {
		require.NoError(t, s.Record(ctx, Entry{
			Generation: gen,
			At:         time.Now(),
			Terms:      5,
			Diff:       Diff{Added: []string{"a.json"}, Updated: []string{}, Removed: []string{}},
		}))
	}

	entries, err := s.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(2), entries[0].Generation)
	assert.Equal(t, []string{"a.json"}, entries[0].Diff.Added)
}
