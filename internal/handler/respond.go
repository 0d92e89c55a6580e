package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Client-facing messages reused across handlers.  Failure bodies are always
// structured ({"detail": ...} or a field-keyed validation map) and never
// expose internals.
const (
	msgBadCredentials = "No active account found with the given credentials"
	msgInvalidToken   = "Token is invalid or expired"
	msgForbidden      = "You do not have permission to perform this action."
	msgNotFound       = "Not found."
	msgServerError    = "A server error occurred."
)

// detail writes a {"detail": msg} body with the given status code.
func detail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"detail": msg})
}

// serverError hides the underlying fault from the client; the cause is left
// to the logging middleware.
func serverError(c echo.Context) error {
	return detail(c, http.StatusInternalServerError, msgServerError)
}

// RequestValidator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound request DTOs.  Field
// names in error output come from json tags.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

// validationError converts validator failures into a 400 response with a
// field-keyed map, so a missing field is reported under its own name.
func validationError(c echo.Context, err error) error {
	out := map[string][]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = append(out[fe.Field()], fieldMessage(fe))
		}
	} else {
		out["non_field_errors"] = []string{"Invalid input."}
	}
	return c.JSON(http.StatusBadRequest, out)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return "Invalid value."
}

// fieldError writes a single-field 400 validation map.
func fieldError(c echo.Context, field, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string][]string{field: {msg}})
}
