package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsSourceDir points at the SQL shipped with the migrations package.
// The files are read off disk rather than through that package because
// migrations imports this one for the Pool type. Tests run with the package
// directory as working directory, so a relative path is enough.
const migrationsSourceDir = "../migrations/postgres"

// setupTestDB starts a disposable PostgreSQL container, applies the verdict
// schema, and returns a connected pool. The cleanup function must be called
// when the test is done.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

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
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	applyMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return pool, cleanup
}

// applyMigrations runs every shipped .sql file against the pool in lexical
// order.
func applyMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(migrationsSourceDir, "*.sql"))
	require.NoError(t, err, "failed to list migration files")
	require.NotEmpty(t, paths, "no migration files under %s", migrationsSourceDir)

	for _, path := range paths {
		sql, err := os.ReadFile(path)
		require.NoError(t, err, "failed to read migration: %s", path)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to apply migration: %s", path)
	}
}
