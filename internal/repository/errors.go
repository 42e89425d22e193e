package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a unique constraint rejects a create
	ErrAlreadyExists = errors.New("already exists")

	// ErrStaleWrite is returned when a conditional state transition finds
	// the entity in an unexpected state
	ErrStaleWrite = errors.New("stale write: entity state changed")

	// ErrDuplicateJob is returned when a Pending or Running job already
	// exists for the same meeting and kind
	ErrDuplicateJob = errors.New("duplicate job for meeting and kind")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
