package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeValidation    = "VALIDATION_ERROR"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
)

// Quota hints tell the client which call-to-action to show.
const (
	HintUpgrade = "upgrade"
	HintLogin   = "login"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error           string `json:"error"`
	Code            string `json:"code,omitempty"`
	Details         string `json:"details,omitempty"`
	UpgradeRequired bool   `json:"upgrade_required,omitempty"`
	LoginRequired   bool   `json:"login_required,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Hint    string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewQuotaExceededError is returned when a copy is denied. Guests are told to
// sign in; signed-in free users are told to upgrade.
func NewQuotaExceededError(guest bool) *AppError {
	if guest {
		return &AppError{
			Code:    CodeQuotaExceeded,
			Message: "Free copy already used. Sign in to keep copying prompts",
			Hint:    HintLogin,
		}
	}
	return &AppError{
		Code:    CodeQuotaExceeded,
		Message: "Monthly copy limit reached. Upgrade to Pro for unlimited copies",
		Hint:    HintUpgrade,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch ErrorCode(err) {
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeQuotaExceeded:
		return fiber.StatusTooManyRequests
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response. Internal errors never
// expose their cause to the client.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code != CodeInternal:
		response = ErrorResponse{
			Error:           appErr.Message,
			Code:            appErr.Code,
			UpgradeRequired: appErr.Hint == HintUpgrade,
			LoginRequired:   appErr.Hint == HintLogin,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	case status < fiber.StatusInternalServerError && err != nil && appErr == nil:
		response = ErrorResponse{Error: err.Error()}
	default:
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}
