package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced in API responses.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidState      = "INVALID_STATE"
	CodeConflict          = "CONFLICT"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

// NewUnauthenticatedRedirect carries the login path the caller should resume from.
func NewUnauthenticatedRedirect(message, redirectTo string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, map[string]any{
		"redirect_to": redirectTo,
	})
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewForbiddenRedirect carries the home path matching the caller's role.
func NewForbiddenRedirect(message, redirectTo string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, map[string]any{
		"redirect_to": redirectTo,
	})
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

func NewInvalidState(message string) error {
	return NewDomainError(CodeInvalidState, message, http.StatusConflict, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewTimeout(err error) error {
	return &DomainError{
		Code:       CodeTimeout,
		Message:    "operation timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
