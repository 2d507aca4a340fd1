package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome codes returned to API clients. Services classify every recoverable
// failure as one of these; anything else is treated as an unexpected fault.
const (
	CodeDuplicateName        = "duplicate_name"
	CodeDuplicateTitle       = "duplicate_title"
	CodeValidationFailed     = "validation_failed"
	CodeNotFound             = "not_found"
	CodeReferentialViolation = "referential_violation"
	CodeStorageUnavailable   = "storage_unavailable"
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
)

type Error struct {
	Status int
	Code   string
	// Field names the offending request field for validation failures.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func DuplicateName(name string) *Error {
	return New(http.StatusConflict, CodeDuplicateName, fmt.Errorf("name %q is already in use", name))
}

func DuplicateTitle(title string) *Error {
	return New(http.StatusConflict, CodeDuplicateTitle, fmt.Errorf("title %q is already in use", title))
}

func Validation(field, reason string) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   CodeValidationFailed,
		Field:  field,
		Err:    fmt.Errorf("%s: %s", field, reason),
	}
}

func Referential(detail string) *Error {
	return New(http.StatusConflict, CodeReferentialViolation, errors.New(detail))
}

func Unauthorized(detail string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, errors.New(detail))
}

func Forbidden(detail string) *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(detail))
}

func Storage(err error) *Error {
	return New(http.StatusInternalServerError, CodeStorageUnavailable, err)
}

// From extracts the typed error from err, wrapping unknown failures as a
// storage/unexpected outcome so no raw fault escapes to a client.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Storage(err)
}
