package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/auth"
	"github.com/scriptreach/scriptreach/internal/cache"
	"github.com/scriptreach/scriptreach/internal/gateway"
)

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	Machine *auth.Machine
	Gateway gateway.ProfileAPI
	Cache   *cache.Cache
}

func NewProfileHandler(m *auth.Machine, gw gateway.ProfileAPI, c *cache.Cache) *ProfileHandler {
	return &ProfileHandler{Machine: m, Gateway: gw, Cache: c}
}

type updateProfileReq struct {
	FullName string `json:"full_name" validate:"required"`
}

// Me returns the current profile, read through the cache.
func (h *ProfileHandler) Me(c echo.Context) error {
	p, err := h.Machine.Profile(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update changes the display name and refreshes the cached profile in place
// so the very next read sees the new value.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if err := c.Validate(&req); err != nil {
		return err
	}

	sess := h.Machine.Session()
	if sess == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not signed in"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()

	p, err := h.Gateway.UpdateProfile(ctx, sess.AccessToken, sess.SubjectID, req.FullName)
	if err != nil {
		return mapError(c, err)
	}
	h.Cache.SetImmediate(cache.Key{Kind: "profile", Scope: sess.SubjectID}, p)
	return c.JSON(http.StatusOK, p)
}
