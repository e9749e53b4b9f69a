package core

import (
	"context"
	"errors"
)

var (
	// ErrUpstream is returned when the model provider fails after retries
	ErrUpstream = errors.New("upstream model call failed")

	// ErrSchema is returned when a structured model response does not match its schema
	ErrSchema = errors.New("model response did not match schema")

	// ErrRetrieval is returned when a retrieval lane fails and no trustworthy result set exists
	ErrRetrieval = errors.New("retrieval failed")

	// ErrTimeout is returned when a call or request exceeds its deadline
	ErrTimeout = errors.New("operation timed out")

	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvariant is returned when generated output violates a structural guarantee
	ErrInvariant = errors.New("output invariant violated")

	// ErrCancelled is returned when the caller cancelled the request
	ErrCancelled = errors.New("request cancelled")
)

// FromContext maps a context error to the matching sentinel, or returns nil.
func FromContext(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	}
	return nil
}

// ErrorKind returns the taxonomy tag for an error, so transports can report
// a stable machine-readable kind alongside the human-readable message.
// Unclassified errors report as "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	}
	return "internal"
}
