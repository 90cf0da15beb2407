package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an API failure into the categories the handlers map to
// HTTP status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
	KindDependency
)

// Error is a structured API failure with a stable kind and a
// human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

// Validation creates an error for malformed or out-of-range input.
func Validation(detail string) *Error { return &Error{Kind: KindValidation, Detail: detail} }

// Conflict creates an error for duplicate-resource conditions.
func Conflict(detail string) *Error { return &Error{Kind: KindConflict, Detail: detail} }

// NotFound creates an error for absent resources. Invalid and expired
// reset tokens also use this kind so callers cannot tell them apart.
func NotFound(detail string) *Error { return &Error{Kind: KindNotFound, Detail: detail} }

// Auth creates an error for missing or invalid credentials.
func Auth(detail string) *Error { return &Error{Kind: KindAuth, Detail: detail} }

// Dependency creates an error for external collaborator failures.
func Dependency(detail string) *Error { return &Error{Kind: KindDependency, Detail: detail} }

// Map converts repo/infra errors into structured API errors.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindInternal, Detail: "request timed out"}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindInternal, Detail: "request was canceled"}

	default:
		return &Error{Kind: KindInternal, Detail: err.Error()}
	}
}

// HTTPStatus returns the status code for an error. Validation and conflict
// both map to 400: the produced interface reports duplicate email as a plain
// bad request.
func HTTPStatus(err error) int {
	var apiErr *Error
	if !errors.As(Map(err), &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the human-readable message for an error.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(Map(err), &apiErr) {
		return apiErr.Detail
	}
	return "internal error"
}
