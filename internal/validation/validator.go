// Package validation enforces request schemas at the API boundary.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"promptlime/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
)

// FieldError is a single failed constraint.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// Errors collects every failed constraint of one payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Msg)
	}
	return strings.Join(msgs, "; ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slug.IsSlug(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// Struct validates s against its `validate` tags. Failures come back as a
// VALIDATION_ERROR AppError wrapping Errors.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewInternalError(err)
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Msg: message(fe.Field(), fe.Tag(), fe.Param())})
	}
	return &models.AppError{Code: models.CodeValidation, Message: "Invalid request", Err: out}
}

func message(field, tag, param string) string {
	switch tag {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "slug":
		return fmt.Sprintf("%s must contain only lowercase letters, numbers and hyphens", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed %s", field, tag)
	}
}

// DecodeStrict unmarshals body into dst, rejecting unknown fields and
// trailing data.
func DecodeStrict(body []byte, dst interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return models.NewValidationError("Request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &models.AppError{Code: models.CodeValidation, Message: "Invalid request body", Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return models.NewValidationError("Request body must contain a single JSON object")
	}
	return nil
}

// Bind decodes the request body strictly and validates it.
func Bind(c *fiber.Ctx, dst interface{}) error {
	if err := DecodeStrict(c.Body(), dst); err != nil {
		return err
	}
	return Struct(dst)
}
