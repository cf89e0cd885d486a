package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/model"
)

func TestSignInMapsAuthErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad credentials", 400, `{"error_description":"Invalid login credentials"}`, ErrInvalidCredentials},
		{"unconfirmed email", 400, `{"msg":"Email not confirmed"}`, ErrEmailNotConfirmed},
		{"throttled", 429, `{"msg":"over limit"}`, ErrRateLimited},
		{"outage", 503, ``, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "anon-key", time.Second)
			_, err := c.SignIn(context.Background(), "u@example.com", "pw")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignUpMapsDuplicateEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", time.Second)
	_, err := c.SignUp(context.Background(), "u@example.com", "pw1234", "U")
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestUnreachableGatewayIsTransient(t *testing.T) {
	// Nothing listens here; the dial fails immediately.
	c := NewClient("http://127.0.0.1:1", "anon-key", 200*time.Millisecond)
	_, err := c.ReadProfile(context.Background(), "tok", "id")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTransient(err))
}

func TestReadProfileEmptyResultIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", time.Second)
	_, err := c.ReadProfile(context.Background(), "tok", "id")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsTransient(err), "an empty result is a definitive answer")
}

func TestGetSessionDeadTokenIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", time.Second)
	s := &model.Session{
		SubjectID:   "id",
		AccessToken: "revoked",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	fresh, err := c.GetSession(context.Background(), s)
	require.NoError(t, err, "a revoked session is an answer, not an error")
	assert.Nil(t, fresh)
}

func TestGetSessionRefreshesExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"new-at","refresh_token":"new-rt","expires_in":3600,"user":{"id":"id"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", time.Second)
	s := &model.Session{
		SubjectID:    "id",
		AccessToken:  "old-at",
		RefreshToken: "old-rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	fresh, err := c.GetSession(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "new-at", fresh.AccessToken)
	assert.Equal(t, "id", fresh.SubjectID)
}

func TestGetSessionExpiredRefreshMaterialIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", time.Second)
	s := &model.Session{
		SubjectID:    "id",
		AccessToken:  "old-at",
		RefreshToken: "dead-rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	fresh, err := c.GetSession(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, fresh)
}

func TestSignOutTreatsDeadTokenAsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(srv.URL, "anon-key", time.Second)
		require.NoError(t, c.SignOut(context.Background(), "already-dead"))
		srv.Close()
	}
}

func TestMutationsAskForRepresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		_, _ = w.Write([]byte(`[{"id":"s1","title":"T","body":"B"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", time.Second)
	s, err := c.CreateScript(context.Background(), "tok", &model.Script{Title: "T", Body: "B"})
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
}
