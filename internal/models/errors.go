package models

import (
	"errors"
	"fmt"
)

// Error codes surfaced to API clients.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeDuplicateKey       = "DUPLICATE_KEY"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

var (
	// ErrUnauthenticated is returned when a gated operation runs without an
	// authenticated identity.
	ErrUnauthenticated = &AppError{Code: CodeUnauthenticated, Message: "You need to be logged in!"}

	// ErrInvalidCredentials is returned by login for an unknown email and for a
	// wrong password alike.
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials, Message: "Incorrect credentials"}
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
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

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, models.ErrUnauthenticated) regardless of the message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Extensions is picked up by the GraphQL layer and rendered under the
// "extensions" key of the error.
func (e *AppError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// CodeOf returns the AppError code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Predefined error constructors
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

func NewDuplicateKeyError(message string) *AppError {
	return &AppError{
		Code:    CodeDuplicateKey,
		Message: message,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}
