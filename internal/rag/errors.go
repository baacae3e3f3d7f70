package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream is returned when an external service call (embedding or
	// generation) fails.
	ErrUpstream = errors.New("upstream service error")
	// ErrIndexInconsistent is returned when the vector index references a
	// chunk the chunk store does not have. The corpus and index were built
	// together, so this indicates corruption requiring a rebuild.
	ErrIndexInconsistent = errors.New("index inconsistent with chunk store")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
