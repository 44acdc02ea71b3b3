package retrieval

import "errors"

// ErrInvalidArgument is returned when a request fails validation.
var ErrInvalidArgument = errors.New("invalid argument")
