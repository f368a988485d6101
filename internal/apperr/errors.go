package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid marks content that exists but cannot be parsed or resolved.
	ErrInvalid = errors.New("invalid content")
)
