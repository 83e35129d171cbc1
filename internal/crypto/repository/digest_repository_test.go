package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/keymanager/internal/errors"
)

func TestDigestRepository(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	repo := NewDigestRepository(dir)
	id := "5f0c6b9e-7d64-4f7e-8f0a-1df3a2f41e11"

	_, err := repo.Get(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Put(ctx, id, []byte{1, 2, 3}))
	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, err = os.Stat(filepath.Join(dir, id))
	assert.NoError(t, err)

	require.NoError(t, repo.Put(ctx, id, []byte{4}))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, got)
}

func TestDigestRepository_UnsafeIDsStayInDataDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	repo := NewDigestRepository(dir)

	for _, id := range []string{"../escape", "a/b", "..", "_"} {
		require.NoError(t, repo.Put(ctx, id, []byte(id)))
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte(id), got)
		assert.Equal(t, dir, filepath.Dir(repo.pathFor(id)))
	}

	_, err := os.Stat(filepath.Join(root, "escape"))
	assert.True(t, os.IsNotExist(err))
}
