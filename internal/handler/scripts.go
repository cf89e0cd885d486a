package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/auth"
	"github.com/scriptreach/scriptreach/internal/model"
	"github.com/scriptreach/scriptreach/internal/repository"
)

// ScriptHandler exposes the outreach script endpoints.
type ScriptHandler struct {
	Machine *auth.Machine
	Scripts *repository.ScriptRepository
}

func NewScriptHandler(m *auth.Machine, r *repository.ScriptRepository) *ScriptHandler {
	return &ScriptHandler{Machine: m, Scripts: r}
}

type createScriptReq struct {
	Title    string   `json:"title" validate:"required"`
	Body     string   `json:"body" validate:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Publish  bool     `json:"publish"` // admin-only: visible to everyone
}

type updateScriptReq struct {
	Title    *string   `json:"title"`
	Body     *string   `json:"body"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

// List returns the scripts visible to the caller.
func (h *ScriptHandler) List(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	scripts, err := h.Scripts.List(ctx, a)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, scripts)
}

// Get returns one script.
func (h *ScriptHandler) Get(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	s, err := h.Scripts.Get(ctx, a, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create stores a new script.
func (h *ScriptHandler) Create(c echo.Context) error {
	var req createScriptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	s, err := h.Scripts.Create(ctx, a, &model.Script{
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		Tags:     req.Tags,
	}, req.Publish)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Update edits a script the caller may mutate.
func (h *ScriptHandler) Update(c echo.Context) error {
	var req updateScriptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	s, err := h.Scripts.Update(ctx, a, c.Param("id"), model.ScriptUpdate{
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete removes a script the caller may mutate.
func (h *ScriptHandler) Delete(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Scripts.Delete(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Favorite marks a script as a favorite of the caller.
func (h *ScriptHandler) Favorite(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Scripts.Favorite(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unfavorite removes the caller's favorite mark.
func (h *ScriptHandler) Unfavorite(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Scripts.Unfavorite(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
