package brain

import "errors"

var (
	// ErrBrainNotFound is returned when a brain has no ledger or no saved
	// index in durable storage.
	ErrBrainNotFound = errors.New("brain does not exist")

	// ErrBrainLoad is returned when a brain exists but could not be
	// brought into memory.
	ErrBrainLoad = errors.New("failed to load brain")
)
