package storage

import "errors"

// Error kinds surfaced by the stores. Operations wrap them with context, so
// callers should test with errors.Is.
var (
	// ErrNotFound is returned when a collection, endpoint or environment is absent.
	ErrNotFound = errors.New("not found")
	// ErrParse is returned when a stored document is not valid or well-formed.
	ErrParse = errors.New("malformed document")
	// ErrValidation is returned when a required identifying field is missing.
	ErrValidation = errors.New("validation failed")
	// ErrWrite is returned when a document could not be persisted.
	ErrWrite = errors.New("write failed")
)
