package eventstream

import "context"

// Publisher publishes brain lifecycle events to an event stream backend.
type Publisher interface {
	PublishBrainEvent(ctx context.Context, event *BrainEvent) error
	Close() error
}
