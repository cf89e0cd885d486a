package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
	"github.com/scriptreach/scriptreach/internal/session"
)

// Destination is the single screen a decision allows the UI to show.
type Destination string

const (
	DestSignIn           Destination = "sign-in"
	DestSignUp           Destination = "sign-up"
	DestAwaitingApproval Destination = "awaiting-approval"
	DestMain             Destination = "main"
)

// State is what the UI layer consumes: the current decision, the one screen
// it maps to, and whether a check is still in flight.
type State struct {
	Decision    Decision    `json:"-"`
	DecisionStr string      `json:"decision"`
	Destination Destination `json:"destination"`
	Resolving   bool        `json:"is_resolving"`
}

func newState(d Decision, dest Destination, resolving bool) State {
	return State{Decision: d, DecisionStr: d.String(), Destination: dest, Resolving: resolving}
}

// Machine composes the session store and the approval resolver into the
// application's auth state. Every trigger (launch, focus, sign-in/up
// success, awaiting-approval poll, pushed session change) funnels into the
// same Decide function; nothing else in the repository routes.
//
// Decide is re-entrant-safe: concurrent checks each get a generation
// number, and only the most recently initiated check may apply its result,
// so a slow stale check can never overwrite a newer decision.
type Machine struct {
	sessions *session.Store
	resolver *Resolver
	cache    *cache.Cache
	gwAuth   gateway.AuthAPI

	mu      sync.Mutex
	seq     uint64 // generation of the most recently started check
	applied uint64 // generation whose result currently holds
	running int    // checks in flight
	state   State
}

// NewMachine wires the state machine and subscribes it to session changes:
// any sign-in, sign-out or refresh clears the query cache before a new
// decision can resolve, closing the window where stale cross-account data
// could render.
func NewMachine(sessions *session.Store, resolver *Resolver, c *cache.Cache, gwAuth gateway.AuthAPI) *Machine {
	m := &Machine{
		sessions: sessions,
		resolver: resolver,
		cache:    c,
		gwAuth:   gwAuth,
		state:    newState(Unauthenticated, DestSignIn, true),
	}
	sessions.Subscribe(func(s *model.Session) {
		// Clear synchronously, on the goroutine that changed the session,
		// strictly before any navigation triggered by the change.
		c.ClearAll()
	})
	return m
}

// Snapshot returns the current state without triggering a check.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Decide runs one authoritative routing check and returns the state that
// holds afterwards (which may come from a newer concurrent check). Safe to
// call repeatedly and concurrently; calling it twice with no intervening
// change yields the same destination.
func (m *Machine) Decide(ctx context.Context) State {
	return m.decide(ctx, false)
}

// DecideAfterSignUp is Decide with the post-sign-up retry tolerance for the
// asynchronous profile-creation trigger.
func (m *Machine) DecideAfterSignUp(ctx context.Context) State {
	return m.decide(ctx, true)
}

func (m *Machine) decide(ctx context.Context, afterSignUp bool) State {
	m.mu.Lock()
	m.seq++
	gen := m.seq
	m.running++
	m.state.Resolving = true
	m.mu.Unlock()

	next := m.evaluate(ctx, afterSignUp)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.running--
	if gen > m.applied {
		// Last-initiated wins: an older check that lands late is discarded.
		m.applied = gen
		next.Resolving = m.running > 0
		m.state = next
	} else {
		// A superseded check still accounts for itself; the flag must clear
		// once nothing is in flight.
		m.state.Resolving = m.running > 0
	}
	return m.state
}

// evaluate performs the actual check: fresh session, approval resolution,
// side effects for terminal decisions.
func (m *Machine) evaluate(ctx context.Context, afterSignUp bool) State {
	sess, err := m.sessions.Current(ctx)
	if err != nil {
		// Gateway unreachable. Route to sign-in for now but keep the local
		// session and cache: a network blip is not a sign-out, and the next
		// successful check restores the authenticated state.
		log.Printf("auth-machine: session check failed: %v", err)
		return newState(Unauthenticated, DestSignIn, false)
	}

	var (
		dec     Decision
		profile *model.Profile
		rerr    error
	)
	if afterSignUp {
		dec, profile, rerr = m.resolver.ResolveAfterSignUp(ctx, sess)
	} else {
		dec, profile, rerr = m.resolver.Resolve(ctx, sess)
	}
	if rerr != nil {
		// Resolver failure is not ProfileMissing: fail open to the main
		// screen rather than locking a legitimate user out on a backend
		// hiccup. Data reads behind that screen carry their own errors.
		log.Printf("auth-machine: approval resolution failed, failing open: %v", rerr)
		return newState(Approved, DestMain, false)
	}

	switch dec {
	case Rejected:
		// A rejected account must not linger: revoke the session, drop the
		// cache, land on sign-in.
		if err := m.sessions.Invalidate(ctx); err != nil {
			log.Printf("auth-machine: sign-out of rejected account: %v", err)
		}
		m.cache.ClearAll()
		return newState(Rejected, DestSignIn, false)
	case Unauthenticated:
		m.cache.ClearAll()
		return newState(Unauthenticated, DestSignIn, false)
	case PendingApproval:
		return newState(PendingApproval, DestAwaitingApproval, false)
	case ProfileMissing:
		return newState(ProfileMissing, DestSignUp, false)
	default: // Approved
		if profile != nil {
			m.cache.SetImmediate(cache.Key{Kind: "profile", Scope: profile.ID}, profile)
		}
		return newState(Approved, DestMain, false)
	}
}

// SignIn performs the imperative sign-in action and re-routes. Credential
// errors are returned for the UI to surface; the state never advances past
// Unauthenticated on failure.
func (m *Machine) SignIn(ctx context.Context, email, password string) (State, error) {
	s, err := m.gwAuth.SignIn(ctx, email, password)
	if err != nil {
		return m.Snapshot(), err
	}
	m.sessions.Set(s) // subscription clears the cache before we re-decide
	m.cache.SetImmediate(cache.Key{Kind: "session"}, s)
	return m.Decide(ctx), nil
}

// SignUp performs the imperative sign-up action and re-routes with the
// trigger-lag tolerance.
func (m *Machine) SignUp(ctx context.Context, email, password, fullName string) (State, error) {
	s, err := m.gwAuth.SignUp(ctx, email, password, fullName)
	if err != nil {
		return m.Snapshot(), err
	}
	m.sessions.Set(s)
	m.cache.SetImmediate(cache.Key{Kind: "session"}, s)
	return m.DecideAfterSignUp(ctx), nil
}

// SignOut is the one sign-out-and-route sequence used everywhere:
// invalidate session, clear cache, re-decide. The cache clear happens
// synchronously before this returns, so no caller can navigate first.
func (m *Machine) SignOut(ctx context.Context) State {
	if err := m.sessions.Invalidate(ctx); err != nil {
		log.Printf("auth-machine: sign-out: %v", err)
	}
	m.cache.ClearAll()
	return m.Decide(ctx)
}

// Session returns the locally cached session without a gateway round trip.
func (m *Machine) Session() *model.Session {
	return m.sessions.Cached()
}

// Profile returns the current subject's profile, read through the cache.
func (m *Machine) Profile(ctx context.Context) (*model.Profile, error) {
	sess := m.sessions.Cached()
	if sess == nil {
		return nil, gateway.ErrUnauthorized
	}
	return cache.GetOrFetch(ctx, m.cache, cache.Key{Kind: "profile", Scope: sess.SubjectID},
		func(ctx context.Context) (*model.Profile, error) {
			return m.resolver.gw.ReadProfile(ctx, sess.AccessToken, sess.SubjectID)
		})
}

// Recheck invalidates the cached profile and re-runs the decision. Used by
// the approval-event consumer when an admin decision lands for the current
// subject.
func (m *Machine) Recheck(ctx context.Context) State {
	if sess := m.sessions.Cached(); sess != nil {
		m.cache.InvalidateKey(cache.Key{Kind: "profile", Scope: sess.SubjectID})
	}
	return m.Decide(ctx)
}

// Poller re-runs the decision at a bounded interval, but only while the
// machine is parked on the awaiting-approval screen, so an admin's
// asynchronous approval is noticed without a relaunch.
type Poller struct {
	machine  *Machine
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewPoller builds a poller; interval defaults to 5s when non-positive.
func NewPoller(m *Machine, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{machine: m, interval: interval, stop: make(chan struct{})}
}

// Start launches the polling loop. Call Stop to end it.
func (p *Poller) Start() {
	go func() {
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				if p.machine.Snapshot().Decision == PendingApproval {
					p.machine.Decide(context.Background())
				}
			}
		}
	}()
}

// Stop ends the polling loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
}
