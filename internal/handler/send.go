package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/auth"
	"github.com/scriptreach/scriptreach/internal/repository"
	"github.com/scriptreach/scriptreach/internal/utils"
)

// SendHandler turns a script plus a contact into a ready-to-send message:
// placeholders substituted, packed into an sms: URL the device composer can
// open. Actual delivery stays on the device; this process never sends SMS
// itself.
type SendHandler struct {
	Machine  *auth.Machine
	Scripts  *repository.ScriptRepository
	Contacts *repository.ContactRepository
}

func NewSendHandler(m *auth.Machine, s *repository.ScriptRepository, c *repository.ContactRepository) *SendHandler {
	return &SendHandler{Machine: m, Scripts: s, Contacts: c}
}

type previewReq struct {
	ScriptID  string `json:"script_id" validate:"required"`
	ContactID string `json:"contact_id" validate:"required"`
}

type previewResp struct {
	Body       string `json:"body"`
	ComposeURL string `json:"compose_url"`
}

// Preview personalizes the script body for the contact and returns it with
// the composer hand-off URL.
func (h *SendHandler) Preview(c echo.Context) error {
	var req previewReq
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

	script, err := h.Scripts.Get(ctx, a, req.ScriptID)
	if err != nil {
		return mapError(c, err)
	}
	contact, err := h.Contacts.Get(ctx, a, req.ContactID)
	if err != nil {
		return mapError(c, err)
	}

	body := utils.Personalize(script.Body, contact.Name)
	compose := "sms:" + contact.PhoneNumber + "?body=" + url.QueryEscape(body)
	return c.JSON(http.StatusOK, previewResp{Body: body, ComposeURL: compose})
}
