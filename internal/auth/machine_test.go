package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
	"github.com/scriptreach/scriptreach/internal/session"
)

type fixture struct {
	fake     *gateway.Fake
	cache    *cache.Cache
	sessions *session.Store
	machine  *Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := gateway.NewFake()
	c := cache.New()
	st := session.NewStore(f, nil)
	m := NewMachine(st, NewResolver(f), c, f)
	return &fixture{fake: f, cache: c, sessions: st, machine: m}
}

func (fx *fixture) signIn(t *testing.T, email, password string) {
	t.Helper()
	_, err := fx.machine.SignIn(context.Background(), email, password)
	require.NoError(t, err)
}

func TestDecideNoSessionRoutesSignIn(t *testing.T) {
	fx := newFixture(t)
	st := fx.machine.Decide(context.Background())
	assert.Equal(t, Unauthenticated, st.Decision)
	assert.Equal(t, DestSignIn, st.Destination)
	assert.False(t, st.Resolving)
}

func TestDecideIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")

	first := fx.machine.Decide(context.Background())
	second := fx.machine.Decide(context.Background())
	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, first.Destination, second.Destination)
	assert.Equal(t, DestMain, second.Destination)
}

func TestPendingRoutesAwaitingRegardlessOfRole(t *testing.T) {
	// Even an admin account sits out the approval hold while pending.
	for _, role := range []string{model.RoleUser, model.RoleAdmin} {
		fx := newFixture(t)
		fx.fake.AddAccount("p@example.com", "secret1", "P", role, model.StatusPending)
		st, err := fx.machine.SignIn(context.Background(), "p@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, PendingApproval, st.Decision, "role %s", role)
		assert.Equal(t, DestAwaitingApproval, st.Destination, "role %s", role)
	}
}

func TestApprovedCachesProfile(t *testing.T) {
	fx := newFixture(t)
	id := fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")

	_, ok := fx.cache.Get(cache.Key{Kind: "profile", Scope: id})
	assert.True(t, ok, "approved decision should prime the profile cache")
}

func TestRejectedSignsOutAndClears(t *testing.T) {
	fx := newFixture(t)
	id := fx.fake.AddAccount("r@example.com", "secret1", "R", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "r@example.com", "secret1")
	require.Equal(t, DestMain, fx.machine.Snapshot().Destination)

	fx.fake.SetApproval(id, model.StatusRejected, "")
	st := fx.machine.Decide(context.Background())

	assert.Equal(t, Rejected, st.Decision)
	assert.Equal(t, DestSignIn, st.Destination)
	assert.Nil(t, fx.sessions.Cached(), "rejected session must not linger")
	assert.GreaterOrEqual(t, fx.fake.SignOutCalls, 1, "rejection must revoke at the gateway")
	assert.Zero(t, fx.cache.Len(), "rejection must drop the cache")
}

func TestResolverFailureFailsOpen(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")

	fx.fake.SetFail("ReadProfile", gateway.ErrUnavailable)
	st := fx.machine.Decide(context.Background())
	assert.Equal(t, DestMain, st.Destination, "a backend hiccup must not lock the user out")
}

func TestTransientSessionCheckKeepsLocalSession(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")

	fx.fake.SetFail("GetSession", gateway.ErrUnavailable)
	st := fx.machine.Decide(context.Background())
	assert.Equal(t, DestSignIn, st.Destination)
	assert.NotNil(t, fx.sessions.Cached(), "an unreachable gateway is not a sign-out")

	// Gateway back: the next check restores the authenticated state.
	fx.fake.SetFail("GetSession", nil)
	st = fx.machine.Decide(context.Background())
	assert.Equal(t, DestMain, st.Destination)
}

func TestSignInWrongPassword(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)

	_, err := fx.machine.SignIn(context.Background(), "a@example.com", "wrong")
	require.ErrorIs(t, err, gateway.ErrInvalidCredentials)
	assert.Equal(t, DestSignIn, fx.machine.Snapshot().Destination)
}

func TestSignUpToleratesTriggerLag(t *testing.T) {
	fx := newFixture(t)
	fx.fake.TriggerLag = 2

	st, err := fx.machine.SignUp(context.Background(), "n@example.com", "secret1", "New User")
	require.NoError(t, err)
	assert.Equal(t, DestAwaitingApproval, st.Destination)
}

func TestSignOutSequence(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")
	fx.cache.SetImmediate(cache.Key{Kind: "scripts", Scope: "x"}, []model.Script{})

	st := fx.machine.SignOut(context.Background())

	assert.Equal(t, DestSignIn, st.Destination)
	assert.Nil(t, fx.sessions.Cached())
	assert.GreaterOrEqual(t, fx.fake.SignOutCalls, 1)
	assert.Zero(t, fx.cache.Len(), "cache must be empty before SignOut returns")
}

func TestAccountSwitchDropsPreviousAccountCache(t *testing.T) {
	fx := newFixture(t)
	idA := fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	idB := fx.fake.AddAccount("b@example.com", "secret1", "B", model.RoleUser, model.StatusApproved)

	fx.signIn(t, "a@example.com", "secret1")
	_, ok := fx.cache.Get(cache.Key{Kind: "profile", Scope: idA})
	require.True(t, ok)

	fx.signIn(t, "b@example.com", "secret1")

	_, ok = fx.cache.Get(cache.Key{Kind: "profile", Scope: idA})
	assert.False(t, ok, "previous account's data must not survive the switch")
	_, ok = fx.cache.Get(cache.Key{Kind: "profile", Scope: idB})
	assert.True(t, ok)
}

func TestConcurrentChecksLastInitiatedWins(t *testing.T) {
	fx := newFixture(t)
	id := fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")

	// Only the first session check stalls; later ones pass straight through.
	var stalled atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	fx.fake.OnGetSession = func() {
		if stalled.CompareAndSwap(false, true) {
			close(started)
			<-release
		}
	}

	var slow State
	done := make(chan struct{})
	go func() {
		slow = fx.machine.Decide(context.Background())
		close(done)
	}()
	<-started

	// While the first check hangs, the account is rejected and a newer
	// check lands its result.
	fx.fake.SetApproval(id, model.StatusRejected, "")
	fast := fx.machine.Decide(context.Background())
	require.Equal(t, Rejected, fast.Decision)

	close(release)
	<-done

	// The slow check may not roll the state back; its caller observes the
	// newer decision's state.
	assert.Equal(t, DestSignIn, slow.Destination)
	assert.Equal(t, Rejected, fx.machine.Snapshot().Decision)
	assert.Nil(t, fx.sessions.Cached())
}

func TestStaleCheckClearsResolvingFlag(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)
	fx.signIn(t, "a@example.com", "secret1")

	var stalled atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	fx.fake.OnGetSession = func() {
		if stalled.CompareAndSwap(false, true) {
			close(started)
			<-release
		}
	}

	done := make(chan struct{})
	go func() {
		fx.machine.Decide(context.Background())
		close(done)
	}()
	<-started

	fx.machine.Decide(context.Background())

	close(release)
	<-done

	// With nothing in flight the snapshot must not report a check as
	// running, even though the last check to finish was superseded.
	st := fx.machine.Snapshot()
	assert.Equal(t, Approved, st.Decision)
	assert.False(t, st.Resolving)
}

func TestPollerNoticesApproval(t *testing.T) {
	fx := newFixture(t)
	id := fx.fake.AddAccount("p@example.com", "secret1", "P", model.RoleUser, model.StatusPending)
	fx.signIn(t, "p@example.com", "secret1")
	require.Equal(t, DestAwaitingApproval, fx.machine.Snapshot().Destination)

	p := NewPoller(fx.machine, 20*time.Millisecond)
	p.Start()
	defer p.Stop()

	fx.fake.SetApproval(id, model.StatusApproved, "")

	require.Eventually(t, func() bool {
		return fx.machine.Snapshot().Destination == DestMain
	}, 2*time.Second, 10*time.Millisecond, "poller should observe the approval")
}

func TestRecheckRefreshesProfile(t *testing.T) {
	fx := newFixture(t)
	id := fx.fake.AddAccount("p@example.com", "secret1", "P", model.RoleUser, model.StatusPending)
	fx.signIn(t, "p@example.com", "secret1")

	fx.fake.SetApproval(id, model.StatusApproved, "")
	st := fx.machine.Recheck(context.Background())
	assert.Equal(t, DestMain, st.Destination)

	p, err := fx.machine.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, p.ApprovalStatus)
}
