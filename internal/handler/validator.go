package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to Echo's Validate hook so
// request DTOs can declare their constraints as struct tags.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns the validator wired for required-by-default structs.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator. Violations surface as a 400 with the
// validator's message, which names the first failing field.
func (val *Validator) Validate(i any) error {
	if err := val.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
