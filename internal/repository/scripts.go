package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

// Actor identifies the signed-in user a repository call runs as. Repositories
// perform local ownership checks against it; the gateway enforces the same
// rules server-side with row-level authorization, so the local checks only
// shape behavior, they are not the security boundary.
type Actor struct {
	SubjectID   string
	AccessToken string
	IsAdmin     bool
}

// ScriptRepository manages outreach scripts and per-user favorites.
type ScriptRepository struct {
	gw    gateway.ScriptAPI
	cache *cache.Cache
}

// NewScriptRepository constructs a ScriptRepository.
func NewScriptRepository(gw gateway.ScriptAPI, c *cache.Cache) *ScriptRepository {
	return &ScriptRepository{gw: gw, cache: c}
}

func (r *ScriptRepository) listKey(a Actor) cache.Key {
	return cache.Key{Kind: "scripts", Scope: a.SubjectID}
}

// List returns the scripts visible to the actor: every admin-published
// script plus the actor's own, newest first, with the actor's favorite flags
// applied. The merged view is cached per subject.
func (r *ScriptRepository) List(ctx context.Context, a Actor) ([]model.Script, error) {
	return cache.GetOrFetch(ctx, r.cache, r.listKey(a),
		func(ctx context.Context) ([]model.Script, error) {
			return r.fetchVisible(ctx, a)
		})
}

func (r *ScriptRepository) fetchVisible(ctx context.Context, a Actor) ([]model.Script, error) {
	admin := true
	published, err := r.gw.ListScripts(ctx, a.AccessToken, gateway.ScriptFilter{IsAdmin: &admin})
	if err != nil {
		return nil, err
	}
	own, err := r.gw.ListScripts(ctx, a.AccessToken, gateway.ScriptFilter{CreatedBy: a.SubjectID})
	if err != nil {
		return nil, err
	}
	favs, err := r.gw.ListScriptFavorites(ctx, a.AccessToken, a.SubjectID)
	if err != nil {
		return nil, err
	}
	favSet := make(map[string]bool, len(favs))
	for _, id := range favs {
		favSet[id] = true
	}

	// An admin's own published script appears in both listings; keep one.
	seen := make(map[string]bool, len(published)+len(own))
	merged := make([]model.Script, 0, len(published)+len(own))
	for _, s := range append(published, own...) {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		s.IsFavorite = favSet[s.ID]
		merged = append(merged, s)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// Get returns a single script the actor may see.
func (r *ScriptRepository) Get(ctx context.Context, a Actor, id string) (*model.Script, error) {
	s, err := r.gw.GetScript(ctx, a.AccessToken, id)
	if err != nil {
		return nil, err
	}
	if !s.IsAdmin && s.CreatedBy != a.SubjectID {
		return nil, ErrForbidden
	}
	favs, err := r.gw.ListScriptFavorites(ctx, a.AccessToken, a.SubjectID)
	if err == nil {
		for _, fid := range favs {
			if fid == id {
				s.IsFavorite = true
				break
			}
		}
	}
	return s, nil
}

// Create stores a new script owned by the actor. publish marks it
// admin-visible to everyone and is only honored for admins.
func (r *ScriptRepository) Create(ctx context.Context, a Actor, s *model.Script, publish bool) (*model.Script, error) {
	if publish && !a.IsAdmin {
		return nil, ErrForbidden
	}
	s.CreatedBy = a.SubjectID
	s.IsAdmin = publish
	created, err := r.gw.CreateScript(ctx, a.AccessToken, s)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate("scripts")
	return created, nil
}

// Update edits a script. Personal scripts may only be edited by their
// creator; published scripts only by admins.
func (r *ScriptRepository) Update(ctx context.Context, a Actor, id string, upd model.ScriptUpdate) (*model.Script, error) {
	cur, err := r.gw.GetScript(ctx, a.AccessToken, id)
	if err != nil {
		return nil, err
	}
	if err := r.canMutate(a, cur); err != nil {
		return nil, err
	}
	updated, err := r.gw.UpdateScript(ctx, a.AccessToken, id, upd)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate("scripts")
	return updated, nil
}

// Delete removes a script under the same ownership rules as Update.
func (r *ScriptRepository) Delete(ctx context.Context, a Actor, id string) error {
	cur, err := r.gw.GetScript(ctx, a.AccessToken, id)
	if err != nil {
		return err
	}
	if err := r.canMutate(a, cur); err != nil {
		return err
	}
	if err := r.gw.DeleteScript(ctx, a.AccessToken, id); err != nil {
		return err
	}
	r.cache.Invalidate("scripts")
	return nil
}

func (r *ScriptRepository) canMutate(a Actor, s *model.Script) error {
	if s.IsAdmin {
		if !a.IsAdmin {
			return ErrForbidden
		}
		return nil
	}
	if s.CreatedBy != a.SubjectID {
		return ErrForbidden
	}
	return nil
}

// Favorite marks a script as a favorite of the actor. Favoriting twice is a
// no-op.
func (r *ScriptRepository) Favorite(ctx context.Context, a Actor, id string) error {
	err := r.gw.AddScriptFavorite(ctx, a.AccessToken, a.SubjectID, id)
	if err != nil && !errors.Is(err, gateway.ErrConflict) {
		return err
	}
	r.cache.InvalidateKey(r.listKey(a))
	return nil
}

// Unfavorite removes the actor's favorite mark. Removing a mark that is not
// set is a no-op.
func (r *ScriptRepository) Unfavorite(ctx context.Context, a Actor, id string) error {
	err := r.gw.RemoveScriptFavorite(ctx, a.AccessToken, a.SubjectID, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return err
	}
	r.cache.InvalidateKey(r.listKey(a))
	return nil
}
