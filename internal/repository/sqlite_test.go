package repository_test

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/UnknownOlympus/wardtagger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *repository.SQLiteRepository {
	t.Helper()

	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "cache.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(t.Context()))

	return repo
}

func TestSQLite_GeocodeCache(t *testing.T) {
	t.Parallel()
	repo := newTestSQLite(t)
	ctx := t.Context()
	address := "123 Main St, Chicago, IL 60601"

	_, err := repo.GetCoordinates(ctx, address)
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, repo.SetCoordinates(ctx, address, models.Coordinates{Latitude: 41.88, Longitude: -87.62}))
	coords, err := repo.GetCoordinates(ctx, address)
	require.NoError(t, err)
	assert.InDelta(t, 41.88, coords.Latitude, 0.0001)
	assert.InDelta(t, -87.62, coords.Longitude, 0.0001)

	// Last writer wins.
	require.NoError(t, repo.SetCoordinates(ctx, address, models.Coordinates{Latitude: 41.9, Longitude: -87.7}))
	coords, err = repo.GetCoordinates(ctx, address)
	require.NoError(t, err)
	assert.InDelta(t, 41.9, coords.Latitude, 0.0001)

	// Keys are exact strings.
	_, err = repo.GetCoordinates(ctx, "123 MAIN ST, Chicago, IL 60601")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestSQLite_BatchCache(t *testing.T) {
	t.Parallel()
	repo := newTestSQLite(t)
	ctx := t.Context()

	processed, err := repo.IsMemberProcessed(ctx, "member-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, repo.MarkMemberProcessed(ctx, "member-1"))
	require.NoError(t, repo.MarkMemberProcessed(ctx, "member-1"))

	processed, err = repo.IsMemberProcessed(ctx, "member-1")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, repo.ClearProcessedMembers(ctx))
	processed, err = repo.IsMemberProcessed(ctx, "member-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestSQLite_PendingMembers(t *testing.T) {
	t.Parallel()
	repo := newTestSQLite(t)
	ctx := t.Context()

	pending, err := repo.PendingMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.AddPendingMember(ctx, "member-2"))
	require.NoError(t, repo.AddPendingMember(ctx, "member-1"))
	require.NoError(t, repo.AddPendingMember(ctx, "member-1"))

	pending, err = repo.PendingMembers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"member-1", "member-2"}, pending)

	// Ending a batch keeps the queue.
	require.NoError(t, repo.ClearProcessedMembers(ctx))
	require.NoError(t, repo.RemovePendingMember(ctx, "member-2"))

	pending, err = repo.PendingMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member-1"}, pending)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("default sqlite file in state dir persists across opens", func(t *testing.T) {
		t.Parallel()
		stateDir := filepath.Join(t.TempDir(), "app_state")
		opts := repository.Options{StateDir: stateDir}

		repo, err := repository.Open(ctx, opts, slog.Default())
		require.NoError(t, err)
		require.NoError(t, repo.SetCoordinates(ctx, "addr", models.Coordinates{Latitude: 1, Longitude: 2}))
		require.NoError(t, repo.Close())
		assert.FileExists(t, filepath.Join(stateDir, "cache.db"))

		reopened, err := repository.Open(ctx, opts, slog.Default())
		require.NoError(t, err)
		defer reopened.Close()

		coords, err := reopened.GetCoordinates(ctx, "addr")
		require.NoError(t, err)
		assert.Equal(t, models.Coordinates{Latitude: 1, Longitude: 2}, coords)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		repo, err := repository.Open(ctx, repository.Options{Driver: "redis"}, slog.Default())

		require.Error(t, err)
		assert.Nil(t, repo)
		assert.Contains(t, err.Error(), "unsupported cache driver")
	})
}
