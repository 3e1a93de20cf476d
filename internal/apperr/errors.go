// Package apperr defines the sentinel errors shared across the engine.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a note or version does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on an optimistic-concurrency checksum mismatch.
	ErrConflict = errors.New("conflict")

	// ErrStorage wraps persistence-layer failures. Reads degrade to the
	// in-memory state; a write carrying this error updated memory but
	// may not have reached the provider.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidImport is returned when an import snapshot fails
	// validation. Import is all-or-nothing; nothing was applied.
	ErrInvalidImport = errors.New("invalid import payload")

	// ErrWorkerClosed is returned when a request is submitted to a
	// worker that has already shut down.
	ErrWorkerClosed = errors.New("worker closed")
)
