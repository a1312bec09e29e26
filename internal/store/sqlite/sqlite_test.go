package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goto/sieve/core/view"
	"github.com/goto/sieve/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepository(t *testing.T, path string) *sqlite.ViewRepository {
	t.Helper()

	repo, err := sqlite.Open(context.Background(), sqlite.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, repo.Close())
	})
	return repo
}

func TestViewRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("should return ErrNotFound for a fresh database", func(t *testing.T) {
		repo := openTestRepository(t, filepath.Join(t.TempDir(), "nested", "sieve.db"))

		_, err := repo.Get(ctx, view.DefaultKey)
		assert.ErrorIs(t, err, view.ErrNotFound)
		_, err = repo.Revision(ctx, view.DefaultKey)
		assert.ErrorIs(t, err, view.ErrNotFound)
	})

	t.Run("should overwrite the previous blob", func(t *testing.T) {
		repo := openTestRepository(t, filepath.Join(t.TempDir(), "sieve.db"))

		require.NoError(t, repo.Put(ctx, view.DefaultKey, []byte("first")))
		rev1, err := repo.Revision(ctx, view.DefaultKey)
		require.NoError(t, err)

		require.NoError(t, repo.Put(ctx, view.DefaultKey, []byte("second")))
		rev2, err := repo.Revision(ctx, view.DefaultKey)
		require.NoError(t, err)
		assert.NotEqual(t, rev1, rev2)

		got, err := repo.Get(ctx, view.DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)

		other, err := repo.Get(ctx, "other")
		assert.ErrorIs(t, err, view.ErrNotFound)
		assert.Nil(t, other)
	})

	t.Run("should survive reopening the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sieve.db")
		cfg := view.NewConfiguration(nil, view.SortCriteria{}.Toggled(),
			view.NewFilterCriteria(view.WithText("capital")), true)

		first, err := sqlite.Open(ctx, sqlite.Config{Path: path})
		require.NoError(t, err)
		store := view.NewStore(first)
		require.NoError(t, store.Save(ctx, cfg))
		require.NoError(t, store.Close())
		require.NoError(t, first.Close())

		second := openTestRepository(t, path)
		reopened := view.NewStore(second)
		defer reopened.Close()
		assert.True(t, cfg.Equal(reopened.Load(ctx)))
	})
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), sqlite.Config{})
	assert.Error(t, err)
}
