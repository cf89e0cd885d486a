// Package session holds the client's view of the current authentication
// session. The store is the single source of truth for "is a user logged
// in"; every routing decision reads through it, and every identity change
// flows out of it as a change notification.
package session

import (
	"context"
	"database/sql"
	"log"
	"sync"

	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

// Store caches the session locally (memory + local database) but treats the
// gateway as authoritative: Current always re-verifies before answering.
type Store struct {
	gw gateway.AuthAPI
	db *sql.DB

	mu      sync.Mutex
	current *model.Session
	subs    []func(*model.Session)
}

// NewStore builds a store, restoring any session persisted by a previous
// run.
func NewStore(gw gateway.AuthAPI, db *sql.DB) *Store {
	s := &Store{gw: gw, db: db}
	s.current = loadPersisted(db)
	return s
}

// Subscribe registers fn to run on sign-in, sign-out and token refresh. The
// callback receives the new session, or nil when signed out. Callbacks run
// synchronously on the goroutine that changed the session; they must not
// call back into the store.
func (s *Store) Subscribe(fn func(*model.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Cached returns the local copy without touching the gateway. Fine for
// non-critical UI reads; never for routing decisions.
func (s *Store) Cached() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current returns the authoritative session: the local copy is verified
// with the gateway (and silently refreshed when expired) on every call.
// A transient gateway failure returns the error untouched and keeps the
// local copy; an unreachable backend is not a sign-out.
func (s *Store) Current(ctx context.Context) (*model.Session, error) {
	s.mu.Lock()
	local := s.current
	s.mu.Unlock()

	fresh, err := s.gw.GetSession(ctx, local)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		// Definitive answer: the session is dead (revoked or refresh
		// material expired).
		if local != nil {
			s.apply(nil)
		}
		return nil, nil
	}
	if local == nil || fresh.AccessToken != local.AccessToken || fresh.SubjectID != local.SubjectID {
		// Observed a refresh (or a replacement by another subject).
		s.apply(fresh)
	}
	return fresh, nil
}

// Set installs the session issued by an explicit sign-in or sign-up.
func (s *Store) Set(sess *model.Session) {
	s.apply(sess)
}

// Clear drops the local session without contacting the gateway.
func (s *Store) Clear() {
	s.apply(nil)
}

// Invalidate revokes the session at the gateway and drops the local copy.
// Gateway sign-out is idempotent, so an already-dead session is fine; an
// unreachable gateway still clears local state, because the caller has
// decided this identity must not linger.
func (s *Store) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	local := s.current
	s.mu.Unlock()

	var err error
	if local != nil {
		if err = s.gw.SignOut(ctx, local.AccessToken); err != nil {
			log.Printf("session: gateway sign-out failed (clearing local anyway): %v", err)
		}
	}
	s.apply(nil)
	return err
}

// apply swaps the session, persists it, and notifies subscribers outside
// the lock.
func (s *Store) apply(sess *model.Session) {
	s.mu.Lock()
	s.current = sess
	subs := make([]func(*model.Session), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if err := savePersisted(s.db, sess); err != nil {
		log.Printf("session: persist failed: %v", err)
	}
	for _, fn := range subs {
		fn(sess)
	}
}
