package syncengine

import "errors"

// Every rejection wraps exactly one of these. Anything else coming out of the
// engine is an unexpected storage failure.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("duplicate request")
)
