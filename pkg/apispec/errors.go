package apispec

import "errors"

var (
	// ErrUnknownOperation is returned for a method and path the document does not describe.
	ErrUnknownOperation = errors.New("apispec: unknown operation")
	// ErrInvalidBody is returned when a request body violates its schema.
	ErrInvalidBody = errors.New("apispec: invalid request body")
	// ErrEmptyDocument is returned when a document declares no operations.
	ErrEmptyDocument = errors.New("apispec: document does not contain any operations")
)
