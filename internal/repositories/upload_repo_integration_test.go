//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/moverap/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadName = "3f2504e0-4f89-11d3-9a0c-0305e82c3301.png"

func TestUploadRepository_CreateGetDelete(t *testing.T) {
	cleanupTables(t)
	repo := NewUploadRepository(testDB)
	ctx := context.Background()
	owner := seedAccount(t, "bob", "bob@example.com")

	err := repo.Create(ctx, &models.Upload{
		Filename:    uploadName,
		UserID:      owner.ID,
		ContentType: "image/png",
		Size:        68,
	})
	require.NoError(t, err)

	got, err := repo.GetByFilename(ctx, uploadName)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.UserID)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, int64(68), got.Size)

	err = repo.Create(ctx, &models.Upload{Filename: uploadName, UserID: owner.ID, ContentType: "image/png", Size: 1})
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, repo.Delete(ctx, uploadName))
	assert.ErrorIs(t, repo.Delete(ctx, uploadName), models.ErrNotFound)

	_, err = repo.GetByFilename(ctx, uploadName)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUploadRepository_UnknownOwner(t *testing.T) {
	cleanupTables(t)
	repo := NewUploadRepository(testDB)

	err := repo.Create(context.Background(), &models.Upload{Filename: uploadName, UserID: 999, ContentType: "image/png", Size: 1})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
