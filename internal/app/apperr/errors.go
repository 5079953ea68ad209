package apperr

import (
	"errors"
	"net/http"
)

// Error is an application-layer error that can be mapped to an HTTP response.
//
// Two *Error values match under errors.Is when their codes are equal, so the sentinels
// below work as comparison targets for errors built with New or Wrap.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any

	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t.Code == e.Code
}

const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyRegistered  = "ALREADY_REGISTERED"
	CodeNotRegistered      = "NOT_REGISTERED"
	CodeDuplicateName      = "DUPLICATE_NAME"
	CodeEmailAlreadyInUse  = "EMAIL_ALREADY_IN_USE"
	CodeInvalidCredential  = "INVALID_CREDENTIAL"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternal           = "INTERNAL"
	CodeIdempotencyKeyUsed = "IDEMPOTENCY_KEY_REUSE"
)

var (
	ErrNotAuthenticated  = &Error{Status: http.StatusUnauthorized, Code: CodeNotAuthenticated, Message: "sign in required"}
	ErrUnauthenticated   = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthenticated, Message: "caller is not authenticated"}
	ErrPermissionDenied  = &Error{Status: http.StatusForbidden, Code: CodePermissionDenied, Message: "permission denied"}
	ErrNotFound          = &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "not found"}
	ErrAlreadyRegistered = &Error{Status: http.StatusConflict, Code: CodeAlreadyRegistered, Message: "You are already registered for this event"}
	ErrNotRegistered     = &Error{Status: http.StatusConflict, Code: CodeNotRegistered, Message: "You are not registered for this event"}
	ErrDuplicateName     = &Error{Status: http.StatusConflict, Code: CodeDuplicateName, Message: "A club with this name already exists"}
	ErrValidationFailed  = &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidationFailed, Message: "validation failed"}
	ErrInternal          = &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error"}
)

// New returns a copy of sentinel with its own message and details.
func New(sentinel *Error, message string, details map[string]any) *Error {
	out := *sentinel
	if message != "" {
		out.Message = message
	}
	out.Details = details
	return &out
}

// Wrap returns a copy of sentinel that carries cause.
func Wrap(sentinel *Error, message string, cause error) *Error {
	out := New(sentinel, message, nil)
	out.cause = cause
	return out
}

// Internal wraps a store or identity failure.
func Internal(message string, cause error) *Error {
	return Wrap(ErrInternal, message, cause)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
