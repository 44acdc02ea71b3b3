// Package eventstream defines transport-neutral brain lifecycle events and
// the Publisher contract for emitting them. Drivers live in subpackages
// (kafka for production, nop for disabled mode and tests).
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeBrainCreated is emitted after a brain is created.
	EventTypeBrainCreated = "brain.created"

	// EventTypeBrainRenamed is emitted after a brain is renamed.
	EventTypeBrainRenamed = "brain.renamed"

	// EventTypeBrainDeleted is emitted after a brain is deleted.
	EventTypeBrainDeleted = "brain.deleted"

	// EventTypeFileIngested is emitted after a file's chunks are indexed.
	EventTypeFileIngested = "brain.file.ingested"

	// EventTypeFileDeleted is emitted after a file is removed from a brain.
	EventTypeFileDeleted = "brain.file.deleted"

	// EventTypeAnswerGenerated is emitted after a chat answer is returned.
	EventTypeAnswerGenerated = "brain.answer.generated"
)

// BrainEvent is a transport-neutral event payload for a brain lifecycle
// change.
type BrainEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	BrainName     string    `json:"brain_name"`

	// RenamedTo carries the new name on rename events.
	RenamedTo string `json:"renamed_to,omitempty"`

	// FileName carries the affected file on file events.
	FileName string `json:"file_name,omitempty"`

	// ChunkStart and ChunkEnd carry the affected id range on file events.
	ChunkStart int `json:"chunk_start,omitempty"`
	ChunkEnd   int `json:"chunk_end,omitempty"`

	// Question carries the user question on answer events.
	Question string `json:"question,omitempty"`
}
