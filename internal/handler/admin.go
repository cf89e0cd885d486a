package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/admin"
)

// AdminHandler exposes the approval administration endpoints.
type AdminHandler struct {
	Approvals *admin.Service
}

func NewAdminHandler(s *admin.Service) *AdminHandler {
	return &AdminHandler{Approvals: s}
}

type approveReq struct {
	MakeAdmin bool `json:"make_admin"`
}

type updateStatusReq struct {
	ApprovalStatus *string `json:"approval_status" validate:"omitempty,oneof=pending approved rejected"`
	Role           *string `json:"role" validate:"omitempty,oneof=user admin"`
}

// PendingUsers lists accounts awaiting review.
func (h *AdminHandler) PendingUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	users, err := h.Approvals.PendingUsers(ctx)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// AllUsers lists every account.
func (h *AdminHandler) AllUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	users, err := h.Approvals.AllUsers(ctx)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Approve marks a user approved, optionally promoting them to admin.
func (h *AdminHandler) Approve(c echo.Context) error {
	var req approveReq
	_ = c.Bind(&req) // body is optional; default is a plain approve

	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	p, err := h.Approvals.Approve(ctx, c.Param("id"), req.MakeAdmin)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Deny flips the account to rejected without touching its records.
func (h *AdminHandler) Deny(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	p, err := h.Approvals.Deny(ctx, c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Reject purges the account and everything it owns in one atomic server-side
// operation. 204 means the whole cascade landed.
func (h *AdminHandler) Reject(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	if err := h.Approvals.Reject(ctx, c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateStatus is the general status/role editor used by the user list.
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), gatewayTimeout)
	defer cancel()
	p, err := h.Approvals.UpdateStatus(ctx, c.Param("id"), req.ApprovalStatus, req.Role)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
