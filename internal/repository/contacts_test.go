package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

func contactFixture(t *testing.T) (*gateway.Fake, *ContactRepository, Actor) {
	t.Helper()
	f := gateway.NewFake()
	id := f.AddAccount("u@example.com", "secret1", "U", model.RoleUser, model.StatusApproved)
	repo := NewContactRepository(f, cache.New())
	return f, repo, Actor{SubjectID: id, AccessToken: "tok"}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+1 (555) 010-0000", "15550100000"},
		{"15550100000", "15550100000"},
		{"555.010.0000", "5550100000"},
		{"no digits", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePhone(tt.in), tt.in)
	}
}

func TestImportDeduplicatesByNormalizedNumber(t *testing.T) {
	_, repo, a := contactFixture(t)
	ctx := context.Background()

	res, err := repo.Import(ctx, a, []model.DeviceContact{
		{Name: "Sam", PhoneNumbers: []model.DevicePhoneNumber{{Number: "+1 (555) 010-0000", Label: "mobile"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	// Same number, different device formatting: skipped.
	res, err = repo.Import(ctx, a, []model.DeviceContact{
		{Name: "Sam Again", PhoneNumbers: []model.DevicePhoneNumber{{Number: "15550100000"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	list, err := repo.List(ctx, a)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImportOneRowPerNumber(t *testing.T) {
	_, repo, a := contactFixture(t)

	res, err := repo.Import(context.Background(), a, []model.DeviceContact{
		{Name: "Sam", PhoneNumbers: []model.DevicePhoneNumber{
			{Number: "555-0100", Label: "mobile"},
			{Number: "555-0101", Label: "home"},
		}},
		{Name: "No Numbers"},
		{PhoneNumbers: []model.DevicePhoneNumber{{Number: "555-0102"}}}, // no name
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)
}

func TestImportIsRerunnable(t *testing.T) {
	_, repo, a := contactFixture(t)
	device := []model.DeviceContact{
		{Name: "Sam", PhoneNumbers: []model.DevicePhoneNumber{{Number: "555-0100"}}},
		{Name: "Kim", PhoneNumbers: []model.DevicePhoneNumber{{Number: "555-0101"}}},
	}

	_, err := repo.Import(context.Background(), a, device)
	require.NoError(t, err)
	res, err := repo.Import(context.Background(), a, device)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported, "re-running the import creates no duplicates")
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	_, repo, a := contactFixture(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, a, &model.Contact{Name: "Sam", PhoneNumber: "555-0100"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, a, &model.Contact{Name: "Sam Dup", PhoneNumber: "(555) 0100"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestContactsAreScopedToOwner(t *testing.T) {
	f, repo, a := contactFixture(t)
	other := f.AddAccount("o@example.com", "secret1", "O", model.RoleUser, model.StatusApproved)
	theirs := f.SeedContact(model.Contact{UserID: other, Name: "Private", PhoneNumber: "555-0199"})

	_, err := repo.Get(context.Background(), a, theirs)
	require.ErrorIs(t, err, gateway.ErrNotFound, "another user's contact is invisible, not forbidden")

	list, err := repo.List(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistory(t *testing.T) {
	_, repo, a := contactFixture(t)
	ctx := context.Background()

	c, err := repo.Create(ctx, a, &model.Contact{Name: "Sam", PhoneNumber: "555-0100"})
	require.NoError(t, err)

	_, err = repo.AddActivity(ctx, a, c.ID, model.ActivityCall, "left voicemail")
	require.NoError(t, err)
	_, err = repo.AddActivity(ctx, a, c.ID, "espionage", "")
	require.ErrorIs(t, err, ErrConflict, "unknown activity types are refused")

	entries, err := repo.History(ctx, a, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActivityCall, entries[0].ActivityType)
}

func TestDeleteInvalidatesCachedList(t *testing.T) {
	_, repo, a := contactFixture(t)
	ctx := context.Background()

	c, err := repo.Create(ctx, a, &model.Contact{Name: "Sam", PhoneNumber: "555-0100"})
	require.NoError(t, err)
	list, err := repo.List(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, a, c.ID))

	list, err = repo.List(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, list, "list re-fetched after the delete")
}
