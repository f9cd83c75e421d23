package domain

import "errors"

// Storage-level errors shared by every Store backend. Backends translate
// driver-specific failures into these so services can branch on them.
var (
	// ErrNotFound is returned when a requested record does not exist or is
	// not owned by the caller.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)
