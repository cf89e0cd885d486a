package handler

import (
	"context"  // bounds the gateway round trips per request
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for gateway calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/scriptreach/scriptreach/internal/auth"       // auth state machine
	"github.com/scriptreach/scriptreach/internal/repository" // actor identity
)

// gatewayTimeout bounds every handler-initiated gateway round trip.
const gatewayTimeout = 10 * time.Second

// AuthHandler bundles dependencies for the auth endpoints. Every route here
// funnels into the state machine: handlers never route on their own.
type AuthHandler struct {
	Machine *auth.Machine
}

// NewAuthHandler constructs the auth handler around the state machine.
func NewAuthHandler(m *auth.Machine) *AuthHandler {
	return &AuthHandler{Machine: m}
}

// ----- DTOs -----

type signUpReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}
type signInReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUp creates an account and routes through the machine with the
// post-sign-up retry tolerance. The resulting state tells the UI where the
// user landed (usually awaiting-approval).
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()

	st, err := h.Machine.SignUp(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// SignIn verifies credentials and routes. Credential failures come back as
// 401 with a message distinct from throttling (429) and outages (503).
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()

	st, err := h.Machine.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// SignOut runs the one sign-out sequence: revoke, clear caches, re-route.
// Always lands on sign-in, even when the revocation round trip fails.
func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	return c.JSON(http.StatusOK, h.Machine.SignOut(ctx))
}

// State re-runs the routing decision and returns the resulting state. The UI
// shell calls this on launch and on foreground focus.
func (h *AuthHandler) State(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	return c.JSON(http.StatusOK, h.Machine.Decide(ctx))
}

// Snapshot returns the current state without triggering a check, for cheap
// polling of the in-flight flag.
func (h *AuthHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Machine.Snapshot())
}

// actorFrom derives the repository actor for the signed-in user. The
// approval middleware guarantees a session exists on the routes that use it;
// the profile read is served from cache on the hot path.
func actorFrom(c echo.Context, m *auth.Machine) (repository.Actor, error) {
	sess := m.Session()
	if sess == nil {
		return repository.Actor{}, repository.ErrUnauthenticated
	}
	a := repository.Actor{SubjectID: sess.SubjectID, AccessToken: sess.AccessToken}
	if p, err := m.Profile(c.Request().Context()); err == nil {
		a.IsAdmin = p.IsAdmin()
	}
	return a, nil
}
