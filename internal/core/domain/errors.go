package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the tagged error carried from the core to the HTTP layer.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrRoleNotFound       = &Error{Kind: KindNotFound, Message: "role not found"}
	ErrDuplicateEmail     = &Error{Kind: KindConflict, Message: "email already registered"}
	ErrRoleExists         = &Error{Kind: KindConflict, Message: "role already exists"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "invalid credentials"}
	ErrUnauthenticated    = &Error{Kind: KindAuthentication, Message: "authentication required"}
	ErrForbidden          = &Error{Kind: KindAuthorization, Message: "access forbidden"}
)

// NewValidationError builds a validation failure with per-field details.
func NewValidationError(msg string, details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// NewInternalError wraps an infrastructure failure that must not be
// reported as success.
func NewInternalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
