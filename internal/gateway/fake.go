package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/scriptreach/scriptreach/internal/model"
)

// fakeSigningSecret signs the throwaway JWTs the fake mints. Only tests ever
// see these tokens.
const fakeSigningSecret = "fake-gateway-secret"

type fakeAccount struct {
	subjectID    string
	passwordHash []byte
	confirmed    bool
}

// Fake is an in-memory implementation of the Gateway contract for tests. It
// keeps real row tables so cascade behavior can be verified, hashes
// credentials with bcrypt like a real identity provider, and mints HS256
// JWTs so token inspection code sees realistic input.
//
// Failure injection: SetFail(op, err) makes the named operation return err
// until cleared. TriggerLag simulates the asynchronous profile-creation
// trigger: the first N ReadProfile calls after a sign-up return ErrNotFound.
// OnGetSession, when set, runs at the top of GetSession so tests can stall a
// specific check.
type Fake struct {
	mu sync.Mutex

	accounts  map[string]*fakeAccount // by email
	tokens    map[string]string      // access token -> subject id
	refreshes map[string]string      // refresh token -> subject id

	profiles     map[string]*model.Profile
	scripts      map[string]*model.Script
	resources    map[string]*model.Resource
	contacts     map[string]*model.Contact
	history      map[string]*model.ContactActivity
	scriptFavs   map[string]map[string]bool // subject -> script id set
	resourceFavs map[string]map[string]bool
	objects      map[string][]byte

	triggerLag map[string]int // subject -> remaining NotFound reads
	fail       map[string]error

	TriggerLag   int
	SignOutCalls int
	OnGetSession func()
}

// NewFake returns an empty fake gateway.
func NewFake() *Fake {
	return &Fake{
		accounts:     map[string]*fakeAccount{},
		tokens:       map[string]string{},
		refreshes:    map[string]string{},
		profiles:     map[string]*model.Profile{},
		scripts:      map[string]*model.Script{},
		resources:    map[string]*model.Resource{},
		contacts:     map[string]*model.Contact{},
		history:      map[string]*model.ContactActivity{},
		scriptFavs:   map[string]map[string]bool{},
		resourceFavs: map[string]map[string]bool{},
		objects:      map[string][]byte{},
		triggerLag:   map[string]int{},
		fail:         map[string]error{},
	}
}

// SetFail makes the named operation fail with err; pass nil to clear.
func (f *Fake) SetFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *Fake) failing(op string) error { return f.fail[op] }

// AddAccount seeds a confirmed account with a profile in the given role and
// approval status, returning the subject id.
func (f *Fake) AddAccount(email, password, fullName, role, status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	id := uuid.NewString()
	f.accounts[email] = &fakeAccount{subjectID: id, passwordHash: hash, confirmed: true}
	f.profiles[id] = &model.Profile{
		ID: id, FullName: fullName, Role: role, ApprovalStatus: status,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

// SetApproval rewrites a profile's status/role directly, as if another
// client's admin had done it.
func (f *Fake) SetApproval(subjectID, status, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[subjectID]; ok {
		if status != "" {
			p.ApprovalStatus = status
		}
		if role != "" {
			p.Role = role
		}
	}
}

// SeedScript, SeedResource, SeedContact and SeedActivity insert rows for
// cascade and listing tests.
func (f *Fake) SeedScript(s model.Script) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	f.scripts[s.ID] = &s
	return s.ID
}

func (f *Fake) SeedResource(r model.Resource) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	f.resources[r.ID] = &r
	return r.ID
}

func (f *Fake) SeedContact(c model.Contact) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	f.contacts[c.ID] = &c
	return c.ID
}

func (f *Fake) SeedActivity(a model.ContactActivity) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	f.history[a.ID] = &a
	return a.ID
}

func (f *Fake) SeedFavorites(subjectID string, scriptIDs, resourceIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range scriptIDs {
		if f.scriptFavs[subjectID] == nil {
			f.scriptFavs[subjectID] = map[string]bool{}
		}
		f.scriptFavs[subjectID][id] = true
	}
	for _, id := range resourceIDs {
		if f.resourceFavs[subjectID] == nil {
			f.resourceFavs[subjectID] = map[string]bool{}
		}
		f.resourceFavs[subjectID][id] = true
	}
}

// RowsReferencing counts every row in every dependent table that still
// references the subject, plus the profile row itself. Zero after a purge.
func (f *Fake) RowsReferencing(subjectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.contacts {
		if c.UserID == subjectID {
			n++
		}
	}
	for _, h := range f.history {
		if h.UserID == subjectID {
			n++
		}
	}
	n += len(f.scriptFavs[subjectID])
	n += len(f.resourceFavs[subjectID])
	for _, r := range f.resources {
		if r.CreatedBy == subjectID {
			n++
		}
	}
	for _, s := range f.scripts {
		if s.CreatedBy == subjectID && !s.IsAdmin {
			n++
		}
	}
	if _, ok := f.profiles[subjectID]; ok {
		n++
	}
	return n
}

// HasProfile reports whether the profile row still exists.
func (f *Fake) HasProfile(subjectID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.profiles[subjectID]
	return ok
}

func (f *Fake) mintSession(subjectID string) *model.Session {
	exp := time.Now().UTC().Add(time.Hour)
	claims := jwt.MapClaims{
		"sub": subjectID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
		// Second-granularity claims alone would make two mints within the
		// same second byte-identical.
		"jti": uuid.NewString(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fakeSigningSecret))
	refresh := uuid.NewString()
	f.tokens[tok] = subjectID
	f.refreshes[refresh] = subjectID
	return &model.Session{
		SubjectID:    subjectID,
		AccessToken:  tok,
		RefreshToken: refresh,
		ExpiresAt:    exp,
	}
}

// ----- AuthAPI -----

func (f *Fake) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("SignUp"); err != nil {
		return nil, err
	}
	if _, ok := f.accounts[email]; ok {
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	f.accounts[email] = &fakeAccount{subjectID: id, passwordHash: hash, confirmed: true}
	if f.TriggerLag > 0 {
		f.triggerLag[id] = f.TriggerLag
	}
	f.createProfileLocked(id, fullName)
	return f.mintSession(id), nil
}

func (f *Fake) createProfileLocked(subjectID, fullName string) {
	f.profiles[subjectID] = &model.Profile{
		ID:             subjectID,
		FullName:       fullName,
		Role:           model.RoleUser,
		ApprovalStatus: model.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("SignIn"); err != nil {
		return nil, err
	}
	acc, ok := f.accounts[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !acc.confirmed {
		return nil, ErrEmailNotConfirmed
	}
	return f.mintSession(acc.subjectID), nil
}

func (f *Fake) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignOutCalls++
	if err := f.failing("SignOut"); err != nil {
		return err
	}
	delete(f.tokens, accessToken)
	return nil
}

func (f *Fake) GetSession(ctx context.Context, s *model.Session) (*model.Session, error) {
	if hook := f.OnGetSession; hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("GetSession"); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	if _, ok := f.tokens[s.AccessToken]; !ok {
		if subject, ok := f.refreshes[s.RefreshToken]; ok {
			return f.mintSession(subject), nil
		}
		return nil, nil
	}
	return s, nil
}

// ----- ProfileAPI -----

func (f *Fake) ReadProfile(ctx context.Context, accessToken, subjectID string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ReadProfile"); err != nil {
		return nil, err
	}
	if lag, ok := f.triggerLag[subjectID]; ok && lag > 0 {
		f.triggerLag[subjectID] = lag - 1
		return nil, ErrNotFound
	}
	p, ok := f.profiles[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) UpdateProfile(ctx context.Context, accessToken, subjectID, fullName string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("UpdateProfile"); err != nil {
		return nil, err
	}
	p, ok := f.profiles[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	p.FullName = fullName
	cp := *p
	return &cp, nil
}

func (f *Fake) ListProfiles(ctx context.Context, accessToken, status string) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ListProfiles"); err != nil {
		return nil, err
	}
	var out []model.Profile
	for _, p := range f.profiles {
		if status == "" || p.ApprovalStatus == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *Fake) UpdateApproval(ctx context.Context, accessToken, subjectID string, upd ApprovalUpdate) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("UpdateApproval"); err != nil {
		return nil, err
	}
	p, ok := f.profiles[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.ApprovalStatus != nil {
		p.ApprovalStatus = *upd.ApprovalStatus
	}
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) PurgeUser(ctx context.Context, accessToken, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("PurgeUser"); err != nil {
		return err
	}
	if _, ok := f.profiles[subjectID]; !ok {
		return ErrNotFound
	}
	// Children before parents, all under one lock: the whole cascade either
	// happens or (via failure injection above) none of it does.
	for id, c := range f.contacts {
		if c.UserID == subjectID {
			delete(f.contacts, id)
		}
	}
	for id, h := range f.history {
		if h.UserID == subjectID {
			delete(f.history, id)
		}
	}
	delete(f.scriptFavs, subjectID)
	delete(f.resourceFavs, subjectID)
	for id, r := range f.resources {
		if r.CreatedBy == subjectID {
			delete(f.resources, id)
			delete(f.objects, r.StoragePath)
		}
	}
	for id, s := range f.scripts {
		if s.CreatedBy == subjectID && !s.IsAdmin {
			delete(f.scripts, id)
		}
	}
	delete(f.profiles, subjectID)
	return nil
}

// ----- ScriptAPI -----

func (f *Fake) ListScripts(ctx context.Context, accessToken string, flt ScriptFilter) ([]model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ListScripts"); err != nil {
		return nil, err
	}
	var out []model.Script
	for _, s := range f.scripts {
		if flt.IsAdmin != nil && s.IsAdmin != *flt.IsAdmin {
			continue
		}
		if flt.CreatedBy != "" && s.CreatedBy != flt.CreatedBy {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *Fake) GetScript(ctx context.Context, accessToken, id string) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) CreateScript(ctx context.Context, accessToken string, s *model.Script) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("CreateScript"); err != nil {
		return nil, err
	}
	cp := *s
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	f.scripts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *Fake) UpdateScript(ctx context.Context, accessToken, id string, upd model.ScriptUpdate) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.Body != nil {
		s.Body = *upd.Body
	}
	if upd.Category != nil {
		s.Category = *upd.Category
	}
	if upd.Tags != nil {
		s.Tags = *upd.Tags
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) DeleteScript(ctx context.Context, accessToken, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scripts, id)
	return nil
}

func (f *Fake) ListScriptFavorites(ctx context.Context, accessToken, subjectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.scriptFavs[subjectID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *Fake) AddScriptFavorite(ctx context.Context, accessToken, subjectID, scriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scriptFavs[subjectID] == nil {
		f.scriptFavs[subjectID] = map[string]bool{}
	}
	f.scriptFavs[subjectID][scriptID] = true
	return nil
}

func (f *Fake) RemoveScriptFavorite(ctx context.Context, accessToken, subjectID, scriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scriptFavs[subjectID], scriptID)
	return nil
}

// ----- ResourceAPI -----

func (f *Fake) ListResources(ctx context.Context, accessToken string) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ListResources"); err != nil {
		return nil, err
	}
	var out []model.Resource
	for _, r := range f.resources {
		out = append(out, *r)
	}
	return out, nil
}

func (f *Fake) GetResource(ctx context.Context, accessToken, id string) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *Fake) CreateResource(ctx context.Context, accessToken string, r *model.Resource) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	f.resources[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *Fake) DeleteResource(ctx context.Context, accessToken, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resources, id)
	return nil
}

func (f *Fake) ListResourceFavorites(ctx context.Context, accessToken, subjectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.resourceFavs[subjectID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *Fake) AddResourceFavorite(ctx context.Context, accessToken, subjectID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resourceFavs[subjectID] == nil {
		f.resourceFavs[subjectID] = map[string]bool{}
	}
	f.resourceFavs[subjectID][resourceID] = true
	return nil
}

func (f *Fake) RemoveResourceFavorite(ctx context.Context, accessToken, subjectID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resourceFavs[subjectID], resourceID)
	return nil
}

func (f *Fake) UploadObject(ctx context.Context, accessToken, path, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("UploadObject"); err != nil {
		return err
	}
	f.objects[path] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) SignedURL(ctx context.Context, accessToken, path string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[path]; !ok {
		// Seeded resource rows may reference objects never uploaded; still
		// produce a URL so listings work.
		f.objects[path] = nil
	}
	return fmt.Sprintf("https://fake.storage/%s?exp=%d", path, int(expiry/time.Second)), nil
}

// ----- ContactAPI -----

func (f *Fake) ListContacts(ctx context.Context, accessToken, subjectID string) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ListContacts"); err != nil {
		return nil, err
	}
	var out []model.Contact
	for _, c := range f.contacts {
		if c.UserID == subjectID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *Fake) GetContact(ctx context.Context, accessToken, subjectID, id string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.UserID != subjectID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) CreateContact(ctx context.Context, accessToken string, contact *model.Contact) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *contact
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	f.contacts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *Fake) UpdateContact(ctx context.Context, accessToken, id string, contact *model.Contact) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if contact.Name != "" {
		c.Name = contact.Name
	}
	if contact.PhoneNumber != "" {
		c.PhoneNumber = contact.PhoneNumber
	}
	if contact.PhoneLabel != "" {
		c.PhoneLabel = contact.PhoneLabel
	}
	if contact.Notes != "" {
		c.Notes = contact.Notes
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) DeleteContact(ctx context.Context, accessToken, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.contacts, id)
	return nil
}

func (f *Fake) ListActivities(ctx context.Context, accessToken, subjectID, contactID string) ([]model.ContactActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ContactActivity
	for _, a := range f.history {
		if a.UserID == subjectID && a.ContactID == contactID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *Fake) AddActivity(ctx context.Context, accessToken string, a *model.ContactActivity) (*model.ContactActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now().UTC()
	f.history[cp.ID] = &cp
	out := cp
	return &out, nil
}
