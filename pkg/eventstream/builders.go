package eventstream

import (
	"time"

	"github.com/google/uuid"
)

func newEvent(eventType, brainName string) *BrainEvent {
	return &BrainEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		BrainName:     brainName,
	}
}

// NewBrainCreated builds a brain.created event.
func NewBrainCreated(brainName string) *BrainEvent {
	return newEvent(EventTypeBrainCreated, brainName)
}

// NewBrainRenamed builds a brain.renamed event.
func NewBrainRenamed(oldName, newName string) *BrainEvent {
	e := newEvent(EventTypeBrainRenamed, oldName)
	e.RenamedTo = newName
	return e
}

// NewBrainDeleted builds a brain.deleted event.
func NewBrainDeleted(brainName string) *BrainEvent {
	return newEvent(EventTypeBrainDeleted, brainName)
}

// NewFileIngested builds a brain.file.ingested event covering the chunk id
// range the file landed on.
func NewFileIngested(brainName, fileName string, chunkStart, chunkEnd int) *BrainEvent {
	e := newEvent(EventTypeFileIngested, brainName)
	e.FileName = fileName
	e.ChunkStart = chunkStart
	e.ChunkEnd = chunkEnd
	return e
}

// NewFileDeleted builds a brain.file.deleted event.
func NewFileDeleted(brainName, fileName string) *BrainEvent {
	e := newEvent(EventTypeFileDeleted, brainName)
	e.FileName = fileName
	return e
}

// NewAnswerGenerated builds a brain.answer.generated event.
func NewAnswerGenerated(brainName, question string) *BrainEvent {
	e := newEvent(EventTypeAnswerGenerated, brainName)
	e.Question = question
	return e
}
