package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing ticket, response or user.
var ErrNotFound = errors.New("not found")

// NotFound wraps ErrNotFound with the resource name.
func NotFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// DenyReason names the rule that rejected an action.
type DenyReason string

const (
	ReasonAdminResponded    DenyReason = "admin has already responded"
	ReasonNotOwner          DenyReason = "not owner"
	ReasonHasResponses      DenyReason = "has responses"
	ReasonStatusForbidden   DenyReason = "status forbidden here"
	ReasonNotAdmin          DenyReason = "not admin"
	ReasonAdminCannotDelete DenyReason = "admin cannot delete"
	ReasonUnsupported       DenyReason = "unsupported action"
)

// PermissionDeniedError is returned when the actor may not perform an action.
type PermissionDeniedError struct {
	Reason DenyReason
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + string(e.Reason)
}

// IsPermissionDenied reports whether err carries a permission denial and returns it.
func IsPermissionDenied(err error) (*PermissionDeniedError, bool) {
	var denied *PermissionDeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}

// ValidationError reports a malformed payload.
type ValidationError struct {
	Message string
	Fields  map[string]any
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError.
func NewValidationError(message string, fields map[string]any) error {
	return &ValidationError{Message: message, Fields: fields}
}
