// Package admin implements the approval workflow mutations an administrator
// performs on other accounts. Authorization is enforced server-side by the
// gateway; the role gate on the local HTTP surface only keeps honest UIs
// honest.
package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
	"github.com/scriptreach/scriptreach/internal/queue"
	"github.com/scriptreach/scriptreach/internal/session"
)

// Publisher pushes approval events to the broker so other clients notice a
// decision faster than their poll interval. Best-effort: a broker outage
// never fails the mutation.
type Publisher interface {
	PublishApprovalEvent(ctx context.Context, ev queue.ApprovalEvent) error
}

// Service bundles the admin approval operations.
//
// Two distinct paths exist on purpose:
//   - Deny: soft and reversible, flips approval_status to rejected and
//     nothing else.
//   - Reject: destructive and irreversible, atomically purges the account's
//     profile and every dependent row. The user must sign up again and
//     starts with a fresh identity.
type Service struct {
	gw       gateway.ProfileAPI
	cache    *cache.Cache
	sessions *session.Store
	pub      Publisher // may be nil
}

// NewService wires the approval administration service. pub may be nil when
// no broker is configured.
func NewService(gw gateway.ProfileAPI, c *cache.Cache, sessions *session.Store, pub Publisher) *Service {
	return &Service{gw: gw, cache: c, sessions: sessions, pub: pub}
}

func (s *Service) token() (string, error) {
	sess := s.sessions.Cached()
	if sess == nil {
		return "", gateway.ErrUnauthorized
	}
	return sess.AccessToken, nil
}

// PendingUsers lists profiles awaiting review, read through the cache.
func (s *Service) PendingUsers(ctx context.Context) ([]model.Profile, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	return cache.GetOrFetch(ctx, s.cache, cache.Key{Kind: "pending_users"},
		func(ctx context.Context) ([]model.Profile, error) {
			return s.gw.ListProfiles(ctx, tok, model.StatusPending)
		})
}

// AllUsers lists every profile, read through the cache.
func (s *Service) AllUsers(ctx context.Context) ([]model.Profile, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	return cache.GetOrFetch(ctx, s.cache, cache.Key{Kind: "all_users"},
		func(ctx context.Context) ([]model.Profile, error) {
			return s.gw.ListProfiles(ctx, tok, "")
		})
}

// Approve marks the user approved and optionally promotes them to admin.
// Approving an already-approved user is a state-wise no-op.
func (s *Service) Approve(ctx context.Context, userID string, makeAdmin bool) (*model.Profile, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	status := model.StatusApproved
	upd := gateway.ApprovalUpdate{ApprovalStatus: &status}
	if makeAdmin {
		role := model.RoleAdmin
		upd.Role = &role
	}
	p, err := s.gw.UpdateApproval(ctx, tok, userID, upd)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, p)
	return p, nil
}

// Deny is the soft path: flips approval_status to rejected, leaves every
// dependent record intact. Reversible by a later Approve.
func (s *Service) Deny(ctx context.Context, userID string) (*model.Profile, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	status := model.StatusRejected
	p, err := s.gw.UpdateApproval(ctx, tok, userID, gateway.ApprovalUpdate{ApprovalStatus: &status})
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, p)
	return p, nil
}

// Reject is the destructive path: one atomic server-side purge of the
// profile and all dependent rows (contacts, history, favorites, owned
// resources, owned non-admin scripts). Either the whole cascade lands or
// none of it does; partial success is never reported as success.
func (s *Service) Reject(ctx context.Context, userID string) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.gw.PurgeUser(ctx, tok, userID); err != nil {
		return fmt.Errorf("purge user %s: %w", userID, err)
	}
	s.afterMutation(ctx, &model.Profile{ID: userID, ApprovalStatus: model.StatusRejected})
	s.cache.InvalidateScope(userID)
	return nil
}

// UpdateStatus is the general status editor. A rejected status requested
// through it delegates to Reject; there is exactly one destructive path.
func (s *Service) UpdateStatus(ctx context.Context, userID string, status, role *string) (*model.Profile, error) {
	if status != nil && *status == model.StatusRejected {
		if err := s.Reject(ctx, userID); err != nil {
			return nil, err
		}
		return &model.Profile{ID: userID, ApprovalStatus: model.StatusRejected}, nil
	}
	if status == nil && role == nil {
		return nil, fmt.Errorf("no updates provided: %w", gateway.ErrConflict)
	}
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	p, err := s.gw.UpdateApproval(ctx, tok, userID, gateway.ApprovalUpdate{ApprovalStatus: status, Role: role})
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, p)
	return p, nil
}

// afterMutation keeps the cache and the rest of the fleet in step with an
// approval change: the admin projections and the affected profile go stale,
// and an event goes out for other clients parked on the awaiting screen.
func (s *Service) afterMutation(ctx context.Context, p *model.Profile) {
	s.cache.Invalidate("pending_users", "all_users")
	s.cache.InvalidateKey(cache.Key{Kind: "profile", Scope: p.ID})
	if s.pub == nil {
		return
	}
	ev := queue.ApprovalEvent{
		SubjectID:      p.ID,
		ApprovalStatus: p.ApprovalStatus,
		Role:           p.Role,
	}
	if sess := s.sessions.Cached(); sess != nil {
		ev.DecidedBy = sess.SubjectID
	}
	if err := s.pub.PublishApprovalEvent(ctx, ev); err != nil {
		log.Printf("approvals: publish event failed: %v", err)
	}
}
