package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/auth"
	"github.com/scriptreach/scriptreach/internal/repository"
)

// maxUploadBytes caps resource uploads at 50 MiB, which covers the short
// training videos this app traffics in.
const maxUploadBytes = 50 << 20

// ResourceHandler exposes the shared asset endpoints.
type ResourceHandler struct {
	Machine   *auth.Machine
	Resources *repository.ResourceRepository
}

func NewResourceHandler(m *auth.Machine, r *repository.ResourceRepository) *ResourceHandler {
	return &ResourceHandler{Machine: m, Resources: r}
}

// List returns every resource with fresh signed download URLs.
func (h *ResourceHandler) List(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	rs, err := h.Resources.List(ctx, a)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// Get returns one resource.
func (h *ResourceHandler) Get(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	r, err := h.Resources.Get(ctx, a, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Upload accepts a multipart form with "title", "type" and a "file" part,
// stores the bytes and creates the metadata row.
func (h *ResourceHandler) Upload(c echo.Context) error {
	title := c.FormValue("title")
	resourceType := c.FormValue("type")
	if title == "" || resourceType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and type required"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file part required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file part"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file part"})
	}

	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	// Uploads get a longer leash than ordinary gateway calls.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 6*gatewayTimeout)
	defer cancel()
	r, err := h.Resources.Upload(ctx, a, title, resourceType, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Delete removes a resource owned by the caller (or any, for admins).
func (h *ResourceHandler) Delete(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Resources.Delete(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Favorite marks a resource as a favorite of the caller.
func (h *ResourceHandler) Favorite(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Resources.Favorite(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unfavorite removes the caller's favorite mark.
func (h *ResourceHandler) Unfavorite(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Resources.Unfavorite(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
