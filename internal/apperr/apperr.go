// Package apperr defines the error taxonomy shared by every record domain.
//
// Domain packages wrap one of the sentinels with context using %w, and the
// tool layer maps them to stable codes so that callers can react without
// parsing messages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingEndpoint    = errors.New("missing endpoint")
	ErrAlreadyClosed      = errors.New("already closed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Stable error codes exposed at the tool boundary.
const (
	CodeNotFound           = "not_found"
	CodeAlreadyExists      = "already_exists"
	CodeInvalidArgument    = "invalid_argument"
	CodeMissingEndpoint    = "missing_endpoint"
	CodeAlreadyClosed      = "already_closed"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrAlreadyExists, CodeAlreadyExists},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrMissingEndpoint, CodeMissingEndpoint},
	{ErrAlreadyClosed, CodeAlreadyClosed},
	{ErrStorageUnavailable, CodeStorageUnavailable},
}

// Code returns the stable code for err, or CodeInternal when err does not
// wrap any sentinel of the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Status maps err to the result status reported to tool callers.
func Status(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	return "error"
}

// Invalid is shorthand for an ErrInvalidArgument with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound reports that the record kind with the given id does not exist.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// Exists reports that the record kind with the given id already exists.
func Exists(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrAlreadyExists, kind, id)
}
