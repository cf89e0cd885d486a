package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/database"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

func seedSignedIn(t *testing.T, f *gateway.Fake) *model.Session {
	t.Helper()
	f.AddAccount("u@example.com", "secret1", "U", model.RoleUser, model.StatusApproved)
	sess, err := f.SignIn(context.Background(), "u@example.com", "secret1")
	require.NoError(t, err)
	return sess
}

func TestCurrentVerifiesWithGateway(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)
	st := NewStore(f, nil)
	st.Set(sess)

	got, err := st.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.SubjectID, got.SubjectID)
}

func TestCurrentClearsDeadSession(t *testing.T) {
	f := gateway.NewFake()
	st := NewStore(f, nil)
	// Tokens the gateway has never heard of: revoked on another device,
	// refresh material gone too.
	st.Set(&model.Session{SubjectID: "x", AccessToken: "gone", RefreshToken: "gone"})

	got, err := st.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, st.Cached(), "a definitive 'dead' clears the local copy")
}

func TestCurrentObservesRefresh(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)
	st := NewStore(f, nil)
	st.Set(sess)

	// Access token revoked but the refresh token still stands: the gateway
	// re-mints and the store adopts the replacement.
	require.NoError(t, f.SignOut(context.Background(), sess.AccessToken))
	got, err := st.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.SubjectID, got.SubjectID)
	assert.NotEqual(t, sess.AccessToken, got.AccessToken)
	assert.Equal(t, got.AccessToken, st.Cached().AccessToken, "local copy tracks the refresh")
}

func TestCurrentTransientErrorKeepsLocalCopy(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)
	st := NewStore(f, nil)
	st.Set(sess)

	f.SetFail("GetSession", gateway.ErrUnavailable)
	_, err := st.Current(context.Background())
	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.NotNil(t, st.Cached())
}

func TestSubscribersSeeEveryTransition(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)
	st := NewStore(f, nil)

	var events []*model.Session
	st.Subscribe(func(s *model.Session) { events = append(events, s) })

	st.Set(sess)
	require.NoError(t, st.Invalidate(context.Background()))

	require.Len(t, events, 2)
	assert.NotNil(t, events[0])
	assert.Nil(t, events[1])
	assert.GreaterOrEqual(t, f.SignOutCalls, 1)
}

func TestInvalidateClearsLocalEvenWhenGatewayDown(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)
	st := NewStore(f, nil)
	st.Set(sess)

	f.SetFail("SignOut", gateway.ErrUnavailable)
	err := st.Invalidate(context.Background())
	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Nil(t, st.Cached(), "the caller decided this identity must not linger")
}

func TestPersistenceAcrossRestarts(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(path)
	require.NoError(t, err)

	st := NewStore(f, db)
	st.Set(sess)
	require.NoError(t, db.Close())

	db2, err := database.Open(path)
	require.NoError(t, err)
	defer db2.Close()

	st2 := NewStore(f, db2)
	restored := st2.Cached()
	require.NotNil(t, restored, "a persisted session survives a restart")
	assert.Equal(t, sess.SubjectID, restored.SubjectID)
	assert.Equal(t, sess.AccessToken, restored.AccessToken)
}

func TestSignOutRemovesPersistedSession(t *testing.T) {
	f := gateway.NewFake()
	sess := seedSignedIn(t, f)

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(path)
	require.NoError(t, err)
	defer db.Close()

	st := NewStore(f, db)
	st.Set(sess)
	require.NoError(t, st.Invalidate(context.Background()))

	st2 := NewStore(f, db)
	assert.Nil(t, st2.Cached())
}
