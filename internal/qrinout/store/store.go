package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when adding or updating a guest would
	// collide with another active guest's email (case-insensitive).
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateName is returned when adding a checkpoint whose name is
	// already taken by another active checkpoint.
	ErrDuplicateName = errors.New("checkpoint name already in use")
)
