package keypool

import "errors"

var (
	// ErrNoKeys is returned when a pool is created without any keys.
	ErrNoKeys = errors.New("no api keys configured")

	// ErrAllSaturated is returned when every key has spent its budget for
	// the current window.
	ErrAllSaturated = errors.New("all api keys saturated")
)
