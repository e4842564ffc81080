//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/storage"
)

func setupPostgresContainer(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("apnisec_test"),
		tcpostgres.WithUsername("apnisec"),
		tcpostgres.WithPassword("apnisec_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.PostgresURL = connStr
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// a second run must be a no-op
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestStores_Integration(t *testing.T) {
	db := setupPostgresContainer(t)
	ctx := context.Background()

	users := NewUserStore(db)
	require.NoError(t, users.Insert(ctx, "Ada", "ada@example.com", "hash"))
	assert.ErrorIs(t, users.Insert(ctx, "Ada", "ada@example.com", "hash"), storage.ErrConflict)

	u, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	_, err = users.FindByEmail(ctx, "ADA@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, users.UpdateName(ctx, "ada@example.com", "Ada L."))
	u, err = users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", u.Name)

	posts := NewIssueStore(db)
	issue, err := issues.New("ada@example.com", "Open bucket", "public read", "Cloud Security")
	require.NoError(t, err)
	id, err := posts.Create(ctx, issue)
	require.NoError(t, err)

	got, err := posts.Get(ctx, "ada@example.com", id)
	require.NoError(t, err)
	assert.Equal(t, issues.StatusOpen, got.Status)

	_, err = posts.Get(ctx, "eve@example.com", id)
	assert.ErrorIs(t, err, issues.ErrNotFound)

	status := issues.StatusClosed
	require.NoError(t, posts.Update(ctx, "ada@example.com", id, issues.Update{Status: &status}))

	list, err := posts.List(ctx, issues.Filter{Email: "ada@example.com"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, issues.StatusClosed, list[0].Status)

	require.NoError(t, posts.Delete(ctx, "ada@example.com", id))
	assert.ErrorIs(t, posts.Delete(ctx, "ada@example.com", id), issues.ErrNotFound)
}
