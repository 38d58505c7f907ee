// Package apperr defines the sentinel errors shared across the engine.
package apperr

import "errors"

var (
	// ErrNotFound is expected in normal operation (racing deletes, lazy
	// reads); callers treat it as non-fatal.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists signals a rename/write collision. It is surfaced
	// to the caller for a user decision, never auto-resolved.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidPath signals a caller bug or malicious input. Fail fast,
	// never retried.
	ErrInvalidPath = errors.New("invalid path")

	// ErrStorageUnavailable wraps adapter-level I/O failures. Bulk loops
	// skip and log the affected item and continue.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchema signals a failed migration. Fatal at startup; the engine
	// must not operate against an uninitialized schema.
	ErrSchema = errors.New("schema error")
)
