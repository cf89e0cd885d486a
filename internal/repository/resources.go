package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

// signedURLExpiry is how long a download link stays valid. Links are minted
// at read time, so a re-fetch always yields a live one.
const signedURLExpiry = time.Hour

// ResourceRepository manages shared binary assets: the metadata rows, the
// stored bytes behind them and per-user favorites.
type ResourceRepository struct {
	gw    gateway.ResourceAPI
	cache *cache.Cache
}

// NewResourceRepository constructs a ResourceRepository.
func NewResourceRepository(gw gateway.ResourceAPI, c *cache.Cache) *ResourceRepository {
	return &ResourceRepository{gw: gw, cache: c}
}

func (r *ResourceRepository) listKey(a Actor) cache.Key {
	return cache.Key{Kind: "resources", Scope: a.SubjectID}
}

// List returns every resource, newest first, with the actor's favorite flags
// and fresh signed download URLs. Cached per subject so the favorite flags
// never leak across accounts.
func (r *ResourceRepository) List(ctx context.Context, a Actor) ([]model.Resource, error) {
	return cache.GetOrFetch(ctx, r.cache, r.listKey(a),
		func(ctx context.Context) ([]model.Resource, error) {
			return r.fetch(ctx, a)
		})
}

func (r *ResourceRepository) fetch(ctx context.Context, a Actor) ([]model.Resource, error) {
	rows, err := r.gw.ListResources(ctx, a.AccessToken)
	if err != nil {
		return nil, err
	}
	favs, err := r.gw.ListResourceFavorites(ctx, a.AccessToken, a.SubjectID)
	if err != nil {
		return nil, err
	}
	favSet := make(map[string]bool, len(favs))
	for _, id := range favs {
		favSet[id] = true
	}
	for i := range rows {
		rows[i].IsFavorite = favSet[rows[i].ID]
		url, err := r.gw.SignedURL(ctx, a.AccessToken, rows[i].StoragePath, signedURLExpiry)
		if err != nil {
			// A resource without a link still lists; the UI retries on open.
			log.Printf("resources: signing url for %s failed: %v", rows[i].StoragePath, err)
			continue
		}
		rows[i].URL = url
	}
	return rows, nil
}

// Get returns one resource with a fresh signed URL.
func (r *ResourceRepository) Get(ctx context.Context, a Actor, id string) (*model.Resource, error) {
	res, err := r.gw.GetResource(ctx, a.AccessToken, id)
	if err != nil {
		return nil, err
	}
	url, err := r.gw.SignedURL(ctx, a.AccessToken, res.StoragePath, signedURLExpiry)
	if err != nil {
		return nil, err
	}
	res.URL = url
	return res, nil
}

// Upload stores the bytes under a collision-free object key, then creates
// the metadata row pointing at it. filename only contributes its extension.
func (r *ResourceRepository) Upload(ctx context.Context, a Actor, title, resourceType, filename, contentType string, data []byte) (*model.Resource, error) {
	if !model.ValidResourceType(resourceType) {
		return nil, fmt.Errorf("unknown resource type %q: %w", resourceType, ErrConflict)
	}
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.NewString()[:8], ext)

	if err := r.gw.UploadObject(ctx, a.AccessToken, key, contentType, data); err != nil {
		return nil, fmt.Errorf("upload object: %w", err)
	}
	created, err := r.gw.CreateResource(ctx, a.AccessToken, &model.Resource{
		Title:       title,
		Type:        resourceType,
		StoragePath: key,
		CreatedBy:   a.SubjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("create resource row: %w", err)
	}
	r.cache.Invalidate("resources")
	return created, nil
}

// Delete removes a resource row. Only the uploader or an admin may delete.
func (r *ResourceRepository) Delete(ctx context.Context, a Actor, id string) error {
	cur, err := r.gw.GetResource(ctx, a.AccessToken, id)
	if err != nil {
		return err
	}
	if cur.CreatedBy != a.SubjectID && !a.IsAdmin {
		return ErrForbidden
	}
	if err := r.gw.DeleteResource(ctx, a.AccessToken, id); err != nil {
		return err
	}
	r.cache.Invalidate("resources")
	return nil
}

// Favorite marks a resource as a favorite of the actor. Idempotent.
func (r *ResourceRepository) Favorite(ctx context.Context, a Actor, id string) error {
	err := r.gw.AddResourceFavorite(ctx, a.AccessToken, a.SubjectID, id)
	if err != nil && !errors.Is(err, gateway.ErrConflict) {
		return err
	}
	r.cache.InvalidateKey(r.listKey(a))
	return nil
}

// Unfavorite removes the actor's favorite mark. Idempotent.
func (r *ResourceRepository) Unfavorite(ctx context.Context, a Actor, id string) error {
	err := r.gw.RemoveResourceFavorite(ctx, a.AccessToken, a.SubjectID, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return err
	}
	r.cache.InvalidateKey(r.listKey(a))
	return nil
}
