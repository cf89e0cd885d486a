package gateway

import (
	"context"
	"time"

	"github.com/scriptreach/scriptreach/internal/model"
)

// ScriptFilter narrows a script listing. Nil/empty fields are ignored.
type ScriptFilter struct {
	IsAdmin   *bool  // filter on the is_admin column
	CreatedBy string // filter on the created_by column
}

// ApprovalUpdate carries the fields an administrator may change on another
// user's profile. Nil pointers mean "leave unchanged".
type ApprovalUpdate struct {
	ApprovalStatus *string `json:"approval_status,omitempty"`
	Role           *string `json:"role,omitempty"`
}

// AuthAPI is the session-issuance part of the gateway contract.
type AuthAPI interface {
	// SignUp creates an account and returns the issued session. Profile
	// creation is left to a server-side trigger and may lag behind.
	SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error)
	// SignIn verifies credentials and returns a fresh session. Fails with
	// ErrInvalidCredentials, ErrEmailNotConfirmed or ErrRateLimited.
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	// SignOut invalidates the session server-side. Idempotent; calling it
	// with an already-dead token is not an error.
	SignOut(ctx context.Context, accessToken string) error
	// GetSession verifies the given session with the gateway, silently
	// refreshing it when the access token has expired. Returns (nil, nil)
	// when the session has been invalidated, and ErrUnavailable when the
	// gateway cannot be reached (the caller must not discard its local copy
	// in that case).
	GetSession(ctx context.Context, s *model.Session) (*model.Session, error)
}

// ProfileAPI covers profile reads and the admin approval mutations.
type ProfileAPI interface {
	// ReadProfile fetches the profile row for a subject. ErrNotFound is a
	// definitive "no row"; any other error means the answer is unknown.
	ReadProfile(ctx context.Context, accessToken, subjectID string) (*model.Profile, error)
	// UpdateProfile changes the caller's display name.
	UpdateProfile(ctx context.Context, accessToken, subjectID, fullName string) (*model.Profile, error)
	// ListProfiles returns profiles, optionally restricted to one approval
	// status, newest first. Admin-only server-side.
	ListProfiles(ctx context.Context, accessToken, status string) ([]model.Profile, error)
	// UpdateApproval changes another user's approval status and/or role.
	UpdateApproval(ctx context.Context, accessToken, subjectID string, upd ApprovalUpdate) (*model.Profile, error)
	// PurgeUser atomically deletes the subject's profile together with every
	// dependent row (contacts, history, favorites, owned resources and
	// non-admin scripts). One request, one all-or-nothing outcome.
	PurgeUser(ctx context.Context, accessToken, subjectID string) error
}

// ScriptAPI is plain CRUD over the scripts and script_favorites tables.
type ScriptAPI interface {
	ListScripts(ctx context.Context, accessToken string, f ScriptFilter) ([]model.Script, error)
	GetScript(ctx context.Context, accessToken, id string) (*model.Script, error)
	CreateScript(ctx context.Context, accessToken string, s *model.Script) (*model.Script, error)
	UpdateScript(ctx context.Context, accessToken, id string, upd model.ScriptUpdate) (*model.Script, error)
	DeleteScript(ctx context.Context, accessToken, id string) error
	ListScriptFavorites(ctx context.Context, accessToken, subjectID string) ([]string, error)
	AddScriptFavorite(ctx context.Context, accessToken, subjectID, scriptID string) error
	RemoveScriptFavorite(ctx context.Context, accessToken, subjectID, scriptID string) error
}

// ResourceAPI is CRUD over the resources table plus the storage bucket that
// holds the actual bytes.
type ResourceAPI interface {
	ListResources(ctx context.Context, accessToken string) ([]model.Resource, error)
	GetResource(ctx context.Context, accessToken, id string) (*model.Resource, error)
	CreateResource(ctx context.Context, accessToken string, r *model.Resource) (*model.Resource, error)
	DeleteResource(ctx context.Context, accessToken, id string) error
	ListResourceFavorites(ctx context.Context, accessToken, subjectID string) ([]string, error)
	AddResourceFavorite(ctx context.Context, accessToken, subjectID, resourceID string) error
	RemoveResourceFavorite(ctx context.Context, accessToken, subjectID, resourceID string) error
	// UploadObject stores bytes under path in the resources bucket.
	UploadObject(ctx context.Context, accessToken, path, contentType string, data []byte) error
	// SignedURL returns a time-limited download URL for a stored object.
	SignedURL(ctx context.Context, accessToken, path string, expiry time.Duration) (string, error)
}

// ContactAPI is CRUD over the user_contacts and contact_history tables. All
// rows are scoped to the owning subject by row-level authorization; the
// subjectID arguments only shape the queries.
type ContactAPI interface {
	ListContacts(ctx context.Context, accessToken, subjectID string) ([]model.Contact, error)
	GetContact(ctx context.Context, accessToken, subjectID, id string) (*model.Contact, error)
	CreateContact(ctx context.Context, accessToken string, c *model.Contact) (*model.Contact, error)
	UpdateContact(ctx context.Context, accessToken, id string, c *model.Contact) (*model.Contact, error)
	DeleteContact(ctx context.Context, accessToken, id string) error
	ListActivities(ctx context.Context, accessToken, subjectID, contactID string) ([]model.ContactActivity, error)
	AddActivity(ctx context.Context, accessToken string, a *model.ContactActivity) (*model.ContactActivity, error)
}

// Gateway is the full consumed contract of the remote backend.
type Gateway interface {
	AuthAPI
	ProfileAPI
	ScriptAPI
	ResourceAPI
	ContactAPI
}
