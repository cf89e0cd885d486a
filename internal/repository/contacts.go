package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/model"
)

// ContactRepository manages a subject's private contact list and the
// activity history recorded against it.
type ContactRepository struct {
	gw    gateway.ContactAPI
	cache *cache.Cache
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(gw gateway.ContactAPI, c *cache.Cache) *ContactRepository {
	return &ContactRepository{gw: gw, cache: c}
}

func (r *ContactRepository) listKey(a Actor) cache.Key {
	return cache.Key{Kind: "contacts", Scope: a.SubjectID}
}

// normalizePhone reduces a phone number to its digits so the same number in
// different device formats ("+1 (555) 010-0000" vs "15550100000") dedups.
func normalizePhone(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// List returns the actor's contacts, cached per subject.
func (r *ContactRepository) List(ctx context.Context, a Actor) ([]model.Contact, error) {
	return cache.GetOrFetch(ctx, r.cache, r.listKey(a),
		func(ctx context.Context) ([]model.Contact, error) {
			return r.gw.ListContacts(ctx, a.AccessToken, a.SubjectID)
		})
}

// Get returns one of the actor's contacts.
func (r *ContactRepository) Get(ctx context.Context, a Actor, id string) (*model.Contact, error) {
	c, err := r.gw.GetContact(ctx, a.AccessToken, a.SubjectID, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != a.SubjectID {
		return nil, ErrForbidden
	}
	return c, nil
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import turns device-exported contacts into rows on the actor's list: one
// row per phone number, skipping numbers already imported (compared after
// normalization) and entries with no usable number. Partial progress stands
// if a later row fails; re-running the import is safe and picks up the rest.
func (r *ContactRepository) Import(ctx context.Context, a Actor, device []model.DeviceContact) (*ImportResult, error) {
	existing, err := r.gw.ListContacts(ctx, a.AccessToken, a.SubjectID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[normalizePhone(c.PhoneNumber)] = true
	}

	res := &ImportResult{}
	for _, dc := range device {
		if dc.Name == "" || len(dc.PhoneNumbers) == 0 {
			res.Skipped++
			continue
		}
		for _, pn := range dc.PhoneNumbers {
			norm := normalizePhone(pn.Number)
			if norm == "" || have[norm] {
				res.Skipped++
				continue
			}
			_, err := r.gw.CreateContact(ctx, a.AccessToken, &model.Contact{
				UserID:      a.SubjectID,
				Name:        dc.Name,
				PhoneNumber: pn.Number,
				PhoneLabel:  pn.Label,
			})
			if err != nil {
				r.cache.InvalidateKey(r.listKey(a))
				return res, fmt.Errorf("import %q: %w", dc.Name, err)
			}
			have[norm] = true
			res.Imported++
		}
	}
	r.cache.InvalidateKey(r.listKey(a))
	return res, nil
}

// Create adds a single contact entered by hand. A number already on the list
// is a conflict.
func (r *ContactRepository) Create(ctx context.Context, a Actor, c *model.Contact) (*model.Contact, error) {
	existing, err := r.gw.ListContacts(ctx, a.AccessToken, a.SubjectID)
	if err != nil {
		return nil, err
	}
	norm := normalizePhone(c.PhoneNumber)
	for _, e := range existing {
		if normalizePhone(e.PhoneNumber) == norm {
			return nil, fmt.Errorf("phone number already on list: %w", ErrConflict)
		}
	}
	c.UserID = a.SubjectID
	created, err := r.gw.CreateContact(ctx, a.AccessToken, c)
	if err != nil {
		return nil, err
	}
	r.cache.InvalidateKey(r.listKey(a))
	return created, nil
}

// Update edits one of the actor's contacts.
func (r *ContactRepository) Update(ctx context.Context, a Actor, id string, c *model.Contact) (*model.Contact, error) {
	if _, err := r.Get(ctx, a, id); err != nil {
		return nil, err
	}
	c.UserID = a.SubjectID
	updated, err := r.gw.UpdateContact(ctx, a.AccessToken, id, c)
	if err != nil {
		return nil, err
	}
	r.cache.InvalidateKey(r.listKey(a))
	return updated, nil
}

// Delete removes one of the actor's contacts along with its history.
func (r *ContactRepository) Delete(ctx context.Context, a Actor, id string) error {
	if _, err := r.Get(ctx, a, id); err != nil {
		return err
	}
	if err := r.gw.DeleteContact(ctx, a.AccessToken, id); err != nil {
		return err
	}
	r.cache.InvalidateKey(r.listKey(a))
	r.cache.InvalidateKey(cache.Key{Kind: "contact_history", Scope: a.SubjectID + "/" + id})
	return nil
}

// History returns the activity entries recorded against a contact, newest
// first.
func (r *ContactRepository) History(ctx context.Context, a Actor, contactID string) ([]model.ContactActivity, error) {
	if _, err := r.Get(ctx, a, contactID); err != nil {
		return nil, err
	}
	return cache.GetOrFetch(ctx, r.cache, cache.Key{Kind: "contact_history", Scope: a.SubjectID + "/" + contactID},
		func(ctx context.Context) ([]model.ContactActivity, error) {
			return r.gw.ListActivities(ctx, a.AccessToken, a.SubjectID, contactID)
		})
}

// AddActivity records one history entry against a contact.
func (r *ContactRepository) AddActivity(ctx context.Context, a Actor, contactID, activityType, notes string) (*model.ContactActivity, error) {
	if !model.ValidActivityType(activityType) {
		return nil, fmt.Errorf("unknown activity type %q: %w", activityType, ErrConflict)
	}
	if _, err := r.Get(ctx, a, contactID); err != nil {
		return nil, err
	}
	created, err := r.gw.AddActivity(ctx, a.AccessToken, &model.ContactActivity{
		ContactID:    contactID,
		UserID:       a.SubjectID,
		ActivityType: activityType,
		Notes:        notes,
	})
	if err != nil {
		return nil, err
	}
	r.cache.InvalidateKey(cache.Key{Kind: "contact_history", Scope: a.SubjectID + "/" + contactID})
	return created, nil
}
