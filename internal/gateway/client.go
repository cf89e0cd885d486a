package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scriptreach/scriptreach/internal/model"
)

// Client is the HTTP implementation of the Gateway contract. The hosted
// backend exposes three surfaces under one base URL: credential/session
// endpoints under /auth/v1, the relational tables as REST under /rest/v1
// (row-level authorization applied server-side from the bearer token), and
// object storage under /storage/v1.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a gateway client. Every request is bounded by the given
// timeout; a timeout surfaces as ErrUnavailable, never as a definitive
// answer.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ----- auth -----

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (tr *tokenResponse) session() *model.Session {
	return &model.Session{
		SubjectID:    tr.User.ID,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
}

// SignUp creates the account and returns the issued session. The profile
// row is created by a server-side trigger and may not be queryable yet when
// this call returns.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	var tr tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/signup", "", body, &tr); err != nil {
		return nil, err
	}
	return tr.session(), nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tr tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &tr); err != nil {
		return nil, err
	}
	return tr.session(), nil
}

// SignOut revokes the session. A token the gateway no longer recognizes is
// treated as success: the end state is identical.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	if err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// GetSession verifies the session with the gateway, refreshing it first when
// the access token has expired. A definitive "this session is dead" comes
// back as (nil, nil); ErrUnavailable means the question went unanswered.
func (c *Client) GetSession(ctx context.Context, s *model.Session) (*model.Session, error) {
	if s == nil {
		return nil, nil
	}
	if s.Expired() {
		refreshed, err := c.refresh(ctx, s.RefreshToken)
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidCredentials) {
			return nil, nil // refresh material revoked
		}
		if err != nil {
			return nil, err
		}
		return refreshed, nil
	}
	var user struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/auth/v1/user", s.AccessToken, nil, &user)
	if errors.Is(err, ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.ID != "" && user.ID != s.SubjectID {
		// Token belongs to a different subject than the cached copy claims;
		// trust the gateway.
		s.SubjectID = user.ID
	}
	return s, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var tr tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &tr); err != nil {
		return nil, err
	}
	return tr.session(), nil
}

// ----- profiles -----

func (c *Client) ReadProfile(ctx context.Context, accessToken, subjectID string) (*model.Profile, error) {
	var rows []model.Profile
	path := "/rest/v1/profiles?select=*&id=eq." + url.QueryEscape(subjectID)
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken, subjectID, fullName string) (*model.Profile, error) {
	body := map[string]string{"full_name": fullName}
	path := "/rest/v1/profiles?id=eq." + url.QueryEscape(subjectID)
	var rows []model.Profile
	if err := c.doJSON(ctx, http.MethodPatch, path, accessToken, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) ListProfiles(ctx context.Context, accessToken, status string) ([]model.Profile, error) {
	path := "/rest/v1/profiles?select=*&order=created_at.desc"
	if status != "" {
		path += "&approval_status=eq." + url.QueryEscape(status)
	}
	var rows []model.Profile
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) UpdateApproval(ctx context.Context, accessToken, subjectID string, upd ApprovalUpdate) (*model.Profile, error) {
	path := "/rest/v1/profiles?id=eq." + url.QueryEscape(subjectID)
	var rows []model.Profile
	if err := c.doJSON(ctx, http.MethodPatch, path, accessToken, upd, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// PurgeUser invokes the server-side purge_user function, which deletes the
// profile and all dependent rows inside one transaction.
func (c *Client) PurgeUser(ctx context.Context, accessToken, subjectID string) error {
	body := map[string]string{"subject_id": subjectID}
	return c.doJSON(ctx, http.MethodPost, "/rest/v1/rpc/purge_user", accessToken, body, nil)
}

// ----- scripts -----

func (c *Client) ListScripts(ctx context.Context, accessToken string, f ScriptFilter) ([]model.Script, error) {
	path := "/rest/v1/scripts?select=*&order=created_at.desc"
	if f.IsAdmin != nil {
		path += fmt.Sprintf("&is_admin=eq.%t", *f.IsAdmin)
	}
	if f.CreatedBy != "" {
		path += "&created_by=eq." + url.QueryEscape(f.CreatedBy)
	}
	var rows []model.Script
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetScript(ctx context.Context, accessToken, id string) (*model.Script, error) {
	var rows []model.Script
	path := "/rest/v1/scripts?select=*&id=eq." + url.QueryEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) CreateScript(ctx context.Context, accessToken string, s *model.Script) (*model.Script, error) {
	var rows []model.Script
	if err := c.doJSON(ctx, http.MethodPost, "/rest/v1/scripts", accessToken, s, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return s, nil
	}
	return &rows[0], nil
}

func (c *Client) UpdateScript(ctx context.Context, accessToken, id string, upd model.ScriptUpdate) (*model.Script, error) {
	path := "/rest/v1/scripts?id=eq." + url.QueryEscape(id)
	var rows []model.Script
	if err := c.doJSON(ctx, http.MethodPatch, path, accessToken, upd, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) DeleteScript(ctx context.Context, accessToken, id string) error {
	path := "/rest/v1/scripts?id=eq." + url.QueryEscape(id)
	return c.doJSON(ctx, http.MethodDelete, path, accessToken, nil, nil)
}

type favoriteRow struct {
	UserID     string `json:"user_id"`
	ScriptID   string `json:"script_id,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
}

func (c *Client) ListScriptFavorites(ctx context.Context, accessToken, subjectID string) ([]string, error) {
	path := "/rest/v1/script_favorites?select=script_id&user_id=eq." + url.QueryEscape(subjectID)
	var rows []favoriteRow
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ScriptID)
	}
	return ids, nil
}

func (c *Client) AddScriptFavorite(ctx context.Context, accessToken, subjectID, scriptID string) error {
	body := favoriteRow{UserID: subjectID, ScriptID: scriptID}
	err := c.doJSON(ctx, http.MethodPost, "/rest/v1/script_favorites", accessToken, body, nil)
	if errors.Is(err, ErrConflict) {
		return nil // already a favorite
	}
	return err
}

func (c *Client) RemoveScriptFavorite(ctx context.Context, accessToken, subjectID, scriptID string) error {
	path := "/rest/v1/script_favorites?user_id=eq." + url.QueryEscape(subjectID) +
		"&script_id=eq." + url.QueryEscape(scriptID)
	return c.doJSON(ctx, http.MethodDelete, path, accessToken, nil, nil)
}

// ----- resources -----

func (c *Client) ListResources(ctx context.Context, accessToken string) ([]model.Resource, error) {
	var rows []model.Resource
	path := "/rest/v1/resources?select=*&order=created_at.desc"
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetResource(ctx context.Context, accessToken, id string) (*model.Resource, error) {
	var rows []model.Resource
	path := "/rest/v1/resources?select=*&id=eq." + url.QueryEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) CreateResource(ctx context.Context, accessToken string, r *model.Resource) (*model.Resource, error) {
	var rows []model.Resource
	if err := c.doJSON(ctx, http.MethodPost, "/rest/v1/resources", accessToken, r, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return r, nil
	}
	return &rows[0], nil
}

func (c *Client) DeleteResource(ctx context.Context, accessToken, id string) error {
	path := "/rest/v1/resources?id=eq." + url.QueryEscape(id)
	return c.doJSON(ctx, http.MethodDelete, path, accessToken, nil, nil)
}

func (c *Client) ListResourceFavorites(ctx context.Context, accessToken, subjectID string) ([]string, error) {
	path := "/rest/v1/resources_favorites?select=resource_id&user_id=eq." + url.QueryEscape(subjectID)
	var rows []favoriteRow
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ResourceID)
	}
	return ids, nil
}

func (c *Client) AddResourceFavorite(ctx context.Context, accessToken, subjectID, resourceID string) error {
	body := favoriteRow{UserID: subjectID, ResourceID: resourceID}
	err := c.doJSON(ctx, http.MethodPost, "/rest/v1/resources_favorites", accessToken, body, nil)
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}

func (c *Client) RemoveResourceFavorite(ctx context.Context, accessToken, subjectID, resourceID string) error {
	path := "/rest/v1/resources_favorites?user_id=eq." + url.QueryEscape(subjectID) +
		"&resource_id=eq." + url.QueryEscape(resourceID)
	return c.doJSON(ctx, http.MethodDelete, path, accessToken, nil, nil)
}

// UploadObject stores raw bytes in the resources bucket.
func (c *Client) UploadObject(ctx context.Context, accessToken, path, contentType string, data []byte) error {
	u := c.baseURL + "/storage/v1/object/resources/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req, accessToken)
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	return c.statusErr(resp, nil)
}

// SignedURL asks storage for a time-limited download URL.
func (c *Client) SignedURL(ctx context.Context, accessToken, path string, expiry time.Duration) (string, error) {
	body := map[string]int{"expiresIn": int(expiry / time.Second)}
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	p := "/storage/v1/object/sign/resources/" + path
	if err := c.doJSON(ctx, http.MethodPost, p, accessToken, body, &out); err != nil {
		return "", err
	}
	return c.baseURL + "/storage/v1" + out.SignedURL, nil
}

// ----- contacts -----

func (c *Client) ListContacts(ctx context.Context, accessToken, subjectID string) ([]model.Contact, error) {
	path := "/rest/v1/user_contacts?select=*&order=name.asc&user_id=eq." + url.QueryEscape(subjectID)
	var rows []model.Contact
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetContact(ctx context.Context, accessToken, subjectID, id string) (*model.Contact, error) {
	path := "/rest/v1/user_contacts?select=*&id=eq." + url.QueryEscape(id) +
		"&user_id=eq." + url.QueryEscape(subjectID)
	var rows []model.Contact
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) CreateContact(ctx context.Context, accessToken string, contact *model.Contact) (*model.Contact, error) {
	var rows []model.Contact
	if err := c.doJSON(ctx, http.MethodPost, "/rest/v1/user_contacts", accessToken, contact, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return contact, nil
	}
	return &rows[0], nil
}

func (c *Client) UpdateContact(ctx context.Context, accessToken, id string, contact *model.Contact) (*model.Contact, error) {
	path := "/rest/v1/user_contacts?id=eq." + url.QueryEscape(id)
	var rows []model.Contact
	if err := c.doJSON(ctx, http.MethodPatch, path, accessToken, contact, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) DeleteContact(ctx context.Context, accessToken, id string) error {
	path := "/rest/v1/user_contacts?id=eq." + url.QueryEscape(id)
	return c.doJSON(ctx, http.MethodDelete, path, accessToken, nil, nil)
}

func (c *Client) ListActivities(ctx context.Context, accessToken, subjectID, contactID string) ([]model.ContactActivity, error) {
	path := "/rest/v1/contact_history?select=*&order=created_at.desc&user_id=eq." + url.QueryEscape(subjectID) +
		"&contact_id=eq." + url.QueryEscape(contactID)
	var rows []model.ContactActivity
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) AddActivity(ctx context.Context, accessToken string, a *model.ContactActivity) (*model.ContactActivity, error) {
	var rows []model.ContactActivity
	if err := c.doJSON(ctx, http.MethodPost, "/rest/v1/contact_history", accessToken, a, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return a, nil
	}
	return &rows[0], nil
}

// ----- plumbing -----

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doJSON performs one round trip: marshal body, send, map the status code to
// a sentinel error, decode the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	c.setHeaders(req, accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Ask the REST surface to return mutated rows so optimistic cache
	// writes have real data to work with.
	if strings.HasPrefix(path, "/rest/v1/") && (method == http.MethodPost || method == http.MethodPatch) {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	return c.statusErr(resp, out)
}

// statusErr maps the response status to the package's error taxonomy and
// decodes the body on success.
func (c *Client) statusErr(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// 4xx from the auth surface carries a message identifying the cause.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ae struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &ae)
	msg := strings.ToLower(ae.ErrorDescription + " " + ae.Msg + " " + ae.Message + " " + ae.Error)
	switch {
	case strings.Contains(msg, "invalid login credentials"):
		return ErrInvalidCredentials
	case strings.Contains(msg, "not confirmed"):
		return ErrEmailNotConfirmed
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already exists"):
		return ErrEmailExists
	}
	return fmt.Errorf("gateway: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
