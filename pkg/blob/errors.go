package blob

import "errors"

var (
	// ErrObjectNotFound is returned when a key or prefix holds no objects.
	ErrObjectNotFound = errors.New("object not found")
)
