// Package auth implements the client's authentication/approval state
// machine: the one place that decides, from the current session and profile,
// which screen the user is allowed to reach.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

// Decision is the derived approval state: a pure function of (session
// presence, profile presence, profile.approval_status).
type Decision int

const (
	Unauthenticated Decision = iota
	PendingApproval
	Approved
	Rejected
	ProfileMissing
)

func (d Decision) String() string {
	switch d {
	case Unauthenticated:
		return "unauthenticated"
	case PendingApproval:
		return "pending_approval"
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case ProfileMissing:
		return "profile_missing"
	}
	return "unknown"
}

// errProfileNotReady drives the post-sign-up retry loop: the profile row is
// created by a server-side trigger and may not be visible yet.
var errProfileNotReady = errors.New("profile not created yet")

// Resolver maps a session to an approval decision by fetching the subject's
// profile.
type Resolver struct {
	gw gateway.ProfileAPI
}

// NewResolver returns a resolver backed by the given profile API.
func NewResolver(gw gateway.ProfileAPI) *Resolver {
	return &Resolver{gw: gw}
}

// Resolve computes the approval decision for a session. A "not found" from
// the gateway is a definitive ProfileMissing; any other error is returned
// as-is, because "could not ask" must never be silently read as "missing".
// The profile is returned alongside the decision when one was fetched.
func (r *Resolver) Resolve(ctx context.Context, s *model.Session) (Decision, *model.Profile, error) {
	if s == nil {
		return Unauthenticated, nil, nil
	}
	p, err := r.gw.ReadProfile(ctx, s.AccessToken, s.SubjectID)
	if errors.Is(err, gateway.ErrNotFound) {
		return ProfileMissing, nil, nil
	}
	if err != nil {
		return Unauthenticated, nil, err
	}
	switch p.ApprovalStatus {
	case model.StatusPending:
		return PendingApproval, p, nil
	case model.StatusApproved:
		return Approved, p, nil
	case model.StatusRejected:
		return Rejected, p, nil
	default:
		// Unknown status values fall open to Approved so a new backend
		// status never locks users out.
		return Approved, p, nil
	}
}

// ResolveAfterSignUp is Resolve with tolerance for the profile-creation
// trigger lagging behind account creation: ProfileMissing is retried with
// short backoff, up to three attempts, before being believed.
func (r *Resolver) ResolveAfterSignUp(ctx context.Context, s *model.Session) (Decision, *model.Profile, error) {
	type resolved struct {
		decision Decision
		profile  *model.Profile
	}
	op := func() (resolved, error) {
		d, p, err := r.Resolve(ctx, s)
		if err != nil {
			return resolved{}, backoff.Permanent(err)
		}
		if d == ProfileMissing {
			return resolved{}, errProfileNotReady
		}
		return resolved{decision: d, profile: p}, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 300 * time.Millisecond
	eb.MaxInterval = time.Second

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(3))
	if errors.Is(err, errProfileNotReady) {
		return ProfileMissing, nil, nil
	}
	if err != nil {
		return Unauthenticated, nil, err
	}
	return res.decision, res.profile, nil
}
