package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/auth"
	"github.com/scriptreach/scriptreach/internal/model"
	"github.com/scriptreach/scriptreach/internal/repository"
)

// ContactHandler exposes the private contact list endpoints.
type ContactHandler struct {
	Machine  *auth.Machine
	Contacts *repository.ContactRepository
}

func NewContactHandler(m *auth.Machine, r *repository.ContactRepository) *ContactHandler {
	return &ContactHandler{Machine: m, Contacts: r}
}

type contactReq struct {
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	PhoneLabel  string `json:"phone_label"`
	Notes       string `json:"notes"`
}

type importReq struct {
	Contacts []model.DeviceContact `json:"contacts" validate:"required,min=1"`
}

type activityReq struct {
	ActivityType string `json:"activity_type" validate:"required"`
	Notes        string `json:"notes"`
}

// List returns the caller's contacts.
func (h *ContactHandler) List(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	cs, err := h.Contacts.List(ctx, a)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

// Get returns one contact.
func (h *ContactHandler) Get(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	ct, err := h.Contacts.Get(ctx, a, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, ct)
}

// Import ingests device-exported contacts, one row per new phone number.
func (h *ContactHandler) Import(c echo.Context) error {
	var req importReq
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
	// Imports may create hundreds of rows; give them room.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 6*gatewayTimeout)
	defer cancel()
	res, err := h.Contacts.Import(ctx, a, req.Contacts)
	if err != nil {
		// Partial progress stands; report what landed with the failure.
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "import interrupted", "result": res})
	}
	return c.JSON(http.StatusOK, res)
}

// Create adds one contact entered by hand.
func (h *ContactHandler) Create(c echo.Context) error {
	var req contactReq
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
	ct, err := h.Contacts.Create(ctx, a, &model.Contact{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		PhoneLabel:  req.PhoneLabel,
		Notes:       req.Notes,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, ct)
}

// Update edits one of the caller's contacts.
func (h *ContactHandler) Update(c echo.Context) error {
	var req contactReq
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
	ct, err := h.Contacts.Update(ctx, a, c.Param("id"), &model.Contact{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		PhoneLabel:  req.PhoneLabel,
		Notes:       req.Notes,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, ct)
}

// Delete removes one of the caller's contacts and its history.
func (h *ContactHandler) Delete(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Contacts.Delete(ctx, a, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// History lists the activity entries recorded against a contact.
func (h *ContactHandler) History(c echo.Context) error {
	a, err := actorFrom(c, h.Machine)
	if err != nil {
		return mapError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	entries, err := h.Contacts.History(ctx, a, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// AddActivity records one history entry against a contact.
func (h *ContactHandler) AddActivity(c echo.Context) error {
	var req activityReq
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
	entry, err := h.Contacts.AddActivity(ctx, a, c.Param("id"), req.ActivityType, req.Notes)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}
