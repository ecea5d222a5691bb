package model

import "errors"

var (
	// ErrDuplicateName is returned when a category name is already taken.
	ErrDuplicateName = errors.New("category name already in use")
	// ErrDuplicateCategory is returned when a standard category cannot be copied twice.
	ErrDuplicateCategory = errors.New("standard category already in toolbox")
	// ErrIndexOutOfBounds is returned for moves to an invalid position.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrNotFound is returned when no entry has the given id.
	ErrNotFound = errors.New("entry not found")
	// ErrEmptyName is returned when a category name is blank.
	ErrEmptyName = errors.New("category name cannot be empty")
)
