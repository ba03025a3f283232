package filebookModel

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindParse        ErrorKind = "PARSE"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindQuota        ErrorKind = "QUOTA"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInternal     ErrorKind = "INTERNAL"
)

// ErrNotFound is returned by stores for missing records.
var ErrNotFound = errors.New("record not found")

// Error carries a client facing message next to the internal cause. Only
// Message is ever written back to a caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindParse:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindQuota:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable is surfaced as can_retry in the error envelope.
func (e *Error) Retryable() bool {
	return e.Kind == KindQuota || e.Kind == KindInternal
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal hides the cause behind a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong. Please try again later.", Err: cause}
}

// AsError unwraps err into a *Error, wrapping unknown errors as internal.
func AsError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return Internal(err)
}
