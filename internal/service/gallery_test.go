package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
)

func TestGalleryLifecycle(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	gallery, err := env.gallery.CreateGallery(ctx, GalleryRequest{Title: "Spring Trip 2026"})
	require.NoError(t, err)
	assert.Equal(t, "spring-trip-2026", gallery.Slug)
	assert.Empty(t, gallery.Images)

	gallery, err = env.gallery.AddImage(ctx, gallery.ID, coverUpload(t), "Group photo")
	require.NoError(t, err)
	require.Len(t, gallery.Images, 1)
	assert.Equal(t, "Group photo", gallery.Images[0].Caption)
	assert.NotEmpty(t, gallery.Images[0].BlurHash)

	imagePath := gallery.Images[0].Path
	abs, err := env.storage.Resolve(imagePath)
	require.NoError(t, err)
	assert.FileExists(t, abs)

	gallery, err = env.gallery.RemoveImage(ctx, gallery.ID, imagePath)
	require.NoError(t, err)
	assert.Empty(t, gallery.Images)
	assert.NoFileExists(t, abs)
}

func TestGalleryBySlug(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	created, err := env.gallery.CreateGallery(ctx, GalleryRequest{Title: "Graduation"})
	require.NoError(t, err)

	got, err := env.gallery.GetGalleryBySlug(ctx, "graduation")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = env.gallery.GetGalleryBySlug(ctx, "missing")
	assertDomainCode(t, err, domainerrors.CodeNotFound)
}

func TestDeleteGalleryRemovesImages(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	gallery, err := env.gallery.CreateGallery(ctx, GalleryRequest{Title: "Old Album"})
	require.NoError(t, err)

	gallery, err = env.gallery.AddImage(ctx, gallery.ID, coverUpload(t), "")
	require.NoError(t, err)

	abs, err := env.storage.Resolve(gallery.Images[0].Path)
	require.NoError(t, err)

	require.NoError(t, env.gallery.DeleteGallery(ctx, gallery.ID))
	assert.NoFileExists(t, abs)
}

func TestStaffLifecycle(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	member, err := env.staff.CreateStaff(ctx, StaffRequest{
		Name:    "Anna Kovacs",
		Subject: "Mathematics",
		Email:   "akovacs@school.org",
	}, coverUpload(t))
	require.NoError(t, err)
	assert.NotEmpty(t, member.PhotoPath)

	member, err = env.staff.UpdateStaff(ctx, member.ID, StaffRequest{
		Name:    "Anna Kovacs",
		Subject: "Physics",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Physics", member.Subject)
	assert.NotEmpty(t, member.PhotoPath, "photo survives a metadata-only edit")

	listed, err := env.staff.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, env.staff.DeleteStaff(ctx, member.ID))
	_, err = env.staff.GetStaff(ctx, member.ID)
	assertDomainCode(t, err, domainerrors.CodeNotFound)
}
