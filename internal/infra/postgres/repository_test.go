package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgresContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresDriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/postgres/migrations"
)

// setupTestDB creates a PostgreSQL testcontainer, runs the migrations and
// returns a connected GORM DB.
//
// Prerequisites:
//   - Docker must be running
//
// OR
//   - Skip tests with: go test -short
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgresContainer.Run(ctx,
		"postgres:16-alpine",
		postgresContainer.WithDatabase("testdb"),
		postgresContainer.WithUsername("testuser"),
		postgresContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container (is Docker running? use -short to skip): %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, err := gorm.Open(postgresDriver.Open(connStr), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, migrations.Run(db), "Failed to run migrations")

	t.Cleanup(func() {
		_ = Close(db)
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	return db
}

// TestDocumentRepository_SetGet tests document upsert and retrieval.
func TestDocumentRepository_SetGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := NewDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	missing, err := repo.Get(ctx, "goodreads", domain.DocWidgetContent)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Set(ctx, "goodreads", domain.DocWidgetContent, map[string]any{"metrics": []int{1}}))
	got, err := repo.Get(ctx, "goodreads", domain.DocWidgetContent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metrics":[1]}`, string(got))

	// overwrite replaces the whole document
	require.NoError(t, repo.Set(ctx, "goodreads", domain.DocWidgetContent, map[string]any{"profile": "x"}))
	got, err = repo.Get(ctx, "goodreads", domain.DocWidgetContent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"profile":"x"}`, string(got))

	other, err := repo.Get(ctx, "discogs", domain.DocWidgetContent)
	require.NoError(t, err)
	assert.Nil(t, other, "collections are isolated")
}

// TestDocumentRepository_EncodeError tests that unencodable values are rejected before the write.
func TestDocumentRepository_EncodeError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := NewDocumentRepository(setupTestDB(t))

	err := repo.Set(context.Background(), "goodreads", domain.DocAISummary, map[string]any{"fn": func() {}})

	assert.Error(t, err)
}

// TestSyncRunRepository tests recording and listing of sync runs.
func TestSyncRunRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := NewSyncRunRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	runs := []*domain.SyncRun{
		{ID: "0b0f7a7e-0000-4000-8000-000000000001", Provider: "goodreads", Result: domain.SyncSuccess, Phase: domain.PhaseDone, Enriched: 4, Uploaded: 2, Degraded: []string{"summary"}, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "0b0f7a7e-0000-4000-8000-000000000002", Provider: "discogs", Result: domain.SyncFailure, Phase: domain.PhaseFailed, Error: "boom", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)},
		{ID: "0b0f7a7e-0000-4000-8000-000000000003", Provider: "goodreads", Result: domain.SyncSuccess, Phase: domain.PhaseDone, StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		require.NoError(t, repo.Record(ctx, r))
	}

	goodreads, err := repo.ListByProvider(ctx, "goodreads", 10)
	require.NoError(t, err)
	require.Len(t, goodreads, 2)
	assert.Equal(t, runs[2].ID, goodreads[0].ID, "newest first")
	assert.Equal(t, []string{"summary"}, goodreads[1].Degraded)
	assert.Equal(t, 4, goodreads[1].Enriched)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "discogs", recent[1].Provider)
	assert.Equal(t, "boom", recent[1].Error)

	assert.Error(t, repo.Record(ctx, runs[0]), "run IDs are unique")
}
