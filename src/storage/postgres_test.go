package storage

import (
	"context"
	"testing"
	"time"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Storage.DBType = "postgres"
	cfg.Storage.DBConnectionString = dsn
	cfg.Storage.DBSchema = "spikes_test"

	store, err := NewPostgresStore(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	require.NoError(t, store.Persist(ctx, event("A", 40_000_000, now)))
	require.NoError(t, store.Persist(ctx, event("A", 60_000_000, now)))
	require.NoError(t, store.Persist(ctx, event("B", 90_000_000, now.Add(time.Second))))

	activity, total, err := store.SymbolActivitySince(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, activity, 2)
	assert.Equal(t, "A", activity[0].Symbol)
	assert.InDelta(t, 10.0, activity[0].TotalValueCr, 1e-9)

	recent, err := store.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "B", recent[0].Symbol)
	assert.Equal(t, models.SeverityLarge, recent[0].Severity)

	// Initialize is idempotent
	require.NoError(t, store.Initialize(ctx))
	activity, _, err = store.SymbolActivitySince(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, activity, 2)
}
