package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

func resourceFixture(t *testing.T) (*gateway.Fake, *ResourceRepository) {
	t.Helper()
	f := gateway.NewFake()
	return f, NewResourceRepository(f, cache.New())
}

func TestUploadCreatesObjectAndRow(t *testing.T) {
	_, repo := resourceFixture(t)
	me := Actor{SubjectID: "me", AccessToken: "tok"}

	r, err := repo.Upload(context.Background(), me, "Pitch deck", model.ResourcePDF,
		"Pitch Deck Final (2).pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "me", r.CreatedBy)
	assert.True(t, strings.HasSuffix(r.StoragePath, ".pdf"), "object key keeps the extension: %s", r.StoragePath)
	assert.NotContains(t, r.StoragePath, " ", "object key never carries the user-supplied name")
}

func TestUploadRejectsUnknownType(t *testing.T) {
	_, repo := resourceFixture(t)
	me := Actor{SubjectID: "me", AccessToken: "tok"}

	_, err := repo.Upload(context.Background(), me, "X", "spreadsheet", "x.xlsx", "", nil)
	require.ErrorIs(t, err, ErrConflict)
}

func TestListCarriesSignedURLsAndFavorites(t *testing.T) {
	f, repo := resourceFixture(t)
	me := Actor{SubjectID: "me", AccessToken: "tok"}
	id := f.SeedResource(model.Resource{Title: "Video", Type: model.ResourceVideo, StoragePath: "v.mp4", CreatedBy: "boss"})
	f.SeedFavorites("me", nil, []string{id})

	list, err := repo.List(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].URL, "every listed resource gets a download URL")
	assert.True(t, list[0].IsFavorite)
}

func TestDeleteRequiresOwnershipOrAdmin(t *testing.T) {
	f, repo := resourceFixture(t)
	id := f.SeedResource(model.Resource{Title: "Video", Type: model.ResourceVideo, StoragePath: "v.mp4", CreatedBy: "boss"})

	stranger := Actor{SubjectID: "me", AccessToken: "tok"}
	require.ErrorIs(t, repo.Delete(context.Background(), stranger, id), ErrForbidden)

	adm := Actor{SubjectID: "other-admin", AccessToken: "tok", IsAdmin: true}
	require.NoError(t, repo.Delete(context.Background(), adm, id))
}
