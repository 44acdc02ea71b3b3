package testutils

import (
	"context"
	"sync"

	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
)

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.BrainEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) PublishBrainEvent(_ context.Context, event *eventstream.BrainEvent) error {
	if event == nil {
		return eventstream.ErrNilBrainEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []*eventstream.BrainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.BrainEvent(nil), p.events...)
}

// EventTypes returns the types of everything published so far, in order.
func (p *RecordingPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType)
	}
	return types
}

func (p *RecordingPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*RecordingPublisher)(nil)
