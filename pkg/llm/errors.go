package llm

import "errors"

var (
	// ErrUpstream is returned when the generation upstream fails for any
	// reason other than a rate limit. Rate limits are absorbed inside the
	// driver by key rotation and retry.
	ErrUpstream = errors.New("upstream generation failed")
)
