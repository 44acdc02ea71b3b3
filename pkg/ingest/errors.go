package ingest

import "errors"

var (
	// ErrInvalidArgument is returned when a request fails validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBrainExists is returned when creating or renaming onto a name
	// that is already taken.
	ErrBrainExists = errors.New("brain already exists")
)
