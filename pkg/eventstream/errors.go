package eventstream

import "errors"

// ErrNilBrainEvent indicates a nil event payload was provided to a publisher.
var ErrNilBrainEvent = errors.New("nil brain event")
