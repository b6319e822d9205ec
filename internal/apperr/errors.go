package apperr

import "errors"

// Error kinds. Handlers map these to HTTP status codes.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrUpstream      = errors.New("upstream failure")
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthorized(message string) *Error {
	return New(ErrUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(ErrForbidden, message)
}

func NotFound(resource string) *Error {
	return New(ErrNotFound, resource+" not found")
}

func Validation(message string) *Error {
	return New(ErrValidation, message)
}

func QuotaExceeded(message string) *Error {
	return New(ErrQuotaExceeded, message)
}

// Upstream wraps a store or provider failure. The message is what the client
// sees; the cause is only logged.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: ErrUpstream, Message: message, cause: cause}
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
