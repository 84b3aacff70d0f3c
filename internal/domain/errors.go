package domain

import "errors"

var (
	// ErrValidation marks malformed or missing input detected before any
	// store access. Wrapped errors carry the human-readable detail.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden marks access to a resource owned by someone else.
	ErrForbidden = errors.New("forbidden")
)
