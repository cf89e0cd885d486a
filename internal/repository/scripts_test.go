package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

func scriptFixture(t *testing.T) (*gateway.Fake, *ScriptRepository) {
	t.Helper()
	f := gateway.NewFake()
	return f, NewScriptRepository(f, cache.New())
}

func TestListMergesPublishedAndOwn(t *testing.T) {
	f, repo := scriptFixture(t)
	me := Actor{SubjectID: "me", AccessToken: "tok"}

	f.SeedScript(model.Script{ID: "pub", Title: "Team opener", IsAdmin: true, CreatedBy: "boss",
		CreatedAt: time.Now().Add(-2 * time.Hour)})
	f.SeedScript(model.Script{ID: "mine", Title: "My twist", CreatedBy: "me",
		CreatedAt: time.Now().Add(-1 * time.Hour)})
	f.SeedScript(model.Script{ID: "other", Title: "Not mine", CreatedBy: "someone-else",
		CreatedAt: time.Now()})
	f.SeedFavorites("me", []string{"pub"}, nil)

	list, err := repo.List(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, list, 2, "published plus own, never other users' personal scripts")

	// Newest first.
	assert.Equal(t, "mine", list[0].ID)
	assert.Equal(t, "pub", list[1].ID)
	assert.True(t, list[1].IsFavorite)
	assert.False(t, list[0].IsFavorite)
}

func TestListDeduplicatesAdminOwnScripts(t *testing.T) {
	f, repo := scriptFixture(t)
	adm := Actor{SubjectID: "boss", AccessToken: "tok", IsAdmin: true}

	// A published script the admin wrote appears in both listings.
	f.SeedScript(model.Script{ID: "pub", Title: "Opener", IsAdmin: true, CreatedBy: "boss"})

	list, err := repo.List(context.Background(), adm)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreatePublishRequiresAdmin(t *testing.T) {
	_, repo := scriptFixture(t)
	user := Actor{SubjectID: "me", AccessToken: "tok"}

	_, err := repo.Create(context.Background(), user, &model.Script{Title: "T", Body: "B"}, true)
	require.ErrorIs(t, err, ErrForbidden)

	s, err := repo.Create(context.Background(), user, &model.Script{Title: "T", Body: "B"}, false)
	require.NoError(t, err)
	assert.Equal(t, "me", s.CreatedBy)
	assert.False(t, s.IsAdmin)
}

func TestMutationOwnershipRules(t *testing.T) {
	f, repo := scriptFixture(t)
	owner := Actor{SubjectID: "owner", AccessToken: "tok"}
	stranger := Actor{SubjectID: "stranger", AccessToken: "tok"}
	adm := Actor{SubjectID: "boss", AccessToken: "tok", IsAdmin: true}

	personal := f.SeedScript(model.Script{Title: "Personal", Body: "b", CreatedBy: "owner"})
	published := f.SeedScript(model.Script{Title: "Published", Body: "b", IsAdmin: true, CreatedBy: "boss"})

	newTitle := "Edited"
	_, err := repo.Update(context.Background(), stranger, personal, model.ScriptUpdate{Title: &newTitle})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = repo.Update(context.Background(), owner, personal, model.ScriptUpdate{Title: &newTitle})
	require.NoError(t, err)

	_, err = repo.Update(context.Background(), owner, published, model.ScriptUpdate{Title: &newTitle})
	require.ErrorIs(t, err, ErrForbidden, "published scripts are admin-only")

	_, err = repo.Update(context.Background(), adm, published, model.ScriptUpdate{Title: &newTitle})
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete(context.Background(), stranger, personal), ErrForbidden)
	require.NoError(t, repo.Delete(context.Background(), owner, personal))
}

func TestFavoriteIsIdempotent(t *testing.T) {
	f, repo := scriptFixture(t)
	me := Actor{SubjectID: "me", AccessToken: "tok"}
	id := f.SeedScript(model.Script{Title: "T", Body: "b", IsAdmin: true, CreatedBy: "boss"})

	require.NoError(t, repo.Favorite(context.Background(), me, id))
	require.NoError(t, repo.Favorite(context.Background(), me, id))

	list, err := repo.List(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsFavorite)

	require.NoError(t, repo.Unfavorite(context.Background(), me, id))
	require.NoError(t, repo.Unfavorite(context.Background(), me, id))

	list, err = repo.List(context.Background(), me)
	require.NoError(t, err)
	assert.False(t, list[0].IsFavorite)
}

func TestGetHidesOthersPersonalScripts(t *testing.T) {
	f, repo := scriptFixture(t)
	me := Actor{SubjectID: "me", AccessToken: "tok"}
	theirs := f.SeedScript(model.Script{Title: "Private", Body: "b", CreatedBy: "someone-else"})

	_, err := repo.Get(context.Background(), me, theirs)
	require.ErrorIs(t, err, ErrForbidden)
}
