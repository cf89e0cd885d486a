package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

func signedIn(t *testing.T, f *gateway.Fake, email, password string) *model.Session {
	t.Helper()
	s, err := f.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	return s
}

func TestResolveNilSession(t *testing.T) {
	r := NewResolver(gateway.NewFake())
	dec, p, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, dec)
	assert.Nil(t, p)
}

func TestResolveStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   Decision
	}{
		{"pending routes to approval hold", model.StatusPending, PendingApproval},
		{"approved routes to main", model.StatusApproved, Approved},
		{"rejected is terminal", model.StatusRejected, Rejected},
		{"unknown status fails open", "quarantined", Approved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := gateway.NewFake()
			f.AddAccount("u@example.com", "secret1", "U", model.RoleUser, tt.status)
			sess := signedIn(t, f, "u@example.com", "secret1")

			dec, p, err := NewResolver(f).Resolve(context.Background(), sess)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dec)
			require.NotNil(t, p)
			assert.Equal(t, tt.status, p.ApprovalStatus)
		})
	}
}

func TestResolveMissingProfileIsNotAnError(t *testing.T) {
	f := gateway.NewFake()
	sess := &model.Session{SubjectID: "ghost", AccessToken: "tok"}

	dec, p, err := NewResolver(f).Resolve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, ProfileMissing, dec)
	assert.Nil(t, p)
}

func TestResolveGatewayFailureIsAnError(t *testing.T) {
	f := gateway.NewFake()
	f.AddAccount("u@example.com", "secret1", "U", model.RoleUser, model.StatusApproved)
	sess := signedIn(t, f, "u@example.com", "secret1")
	f.SetFail("ReadProfile", gateway.ErrUnavailable)

	// "Could not ask" must never be read as "profile missing".
	dec, _, err := NewResolver(f).Resolve(context.Background(), sess)
	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.NotEqual(t, ProfileMissing, dec)
}

func TestResolveAfterSignUpWaitsOutTriggerLag(t *testing.T) {
	f := gateway.NewFake()
	f.TriggerLag = 2 // first two profile reads miss
	sess, err := f.SignUp(context.Background(), "new@example.com", "secret1", "New User")
	require.NoError(t, err)

	dec, p, err := NewResolver(f).ResolveAfterSignUp(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, PendingApproval, dec)
	require.NotNil(t, p)
	assert.Equal(t, model.StatusPending, p.ApprovalStatus)
}

func TestResolveAfterSignUpGivesUpEventually(t *testing.T) {
	f := gateway.NewFake()
	f.TriggerLag = 10 // more misses than the retry budget
	sess, err := f.SignUp(context.Background(), "new@example.com", "secret1", "New User")
	require.NoError(t, err)

	dec, p, err := NewResolver(f).ResolveAfterSignUp(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, ProfileMissing, dec)
	assert.Nil(t, p)
}

func TestResolveAfterSignUpRealErrorIsPermanent(t *testing.T) {
	f := gateway.NewFake()
	sess, err := f.SignUp(context.Background(), "new@example.com", "secret1", "New User")
	require.NoError(t, err)
	f.SetFail("ReadProfile", gateway.ErrUnavailable)

	_, _, rerr := NewResolver(f).ResolveAfterSignUp(context.Background(), sess)
	require.ErrorIs(t, rerr, gateway.ErrUnavailable)
}
