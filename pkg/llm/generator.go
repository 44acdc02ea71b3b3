// Package llm defines the contract over the text generation collaborator.
// The orchestrator hands it a fully assembled retrieval context and persona;
// everything upstream of the wire (prompt text, key rotation, rate-limit
// recovery) lives behind the driver.
package llm

import "context"

// ChatRequest carries everything the driver needs to answer one question in
// persona.
type ChatRequest struct {
	// PersonalityName is the persona the answer speaks as.
	PersonalityName string

	// Question is the effective query, the text the driver answers.
	Question string

	// OriginalQuestion is the user's question as asked, used for language
	// matching.
	OriginalQuestion string

	// Context is the retrieved chunk context, one "<file> --> <chunk>"
	// line per hit.
	Context string

	// WordLimit caps the answer length in words.
	WordLimit int

	// MaskToxicity asks the driver to star out toxic words in the answer.
	MaskToxicity bool
}

// Generator produces persona answers and small utility completions.
type Generator interface {
	// Chat generates an in-persona answer for the request. Upstream rate
	// limits are absorbed by rotating keys and retrying; other upstream
	// failures wrap ErrUpstream.
	Chat(ctx context.Context, req ChatRequest) (string, error)

	// Summarize condenses a previous question/answer pair into 30-40
	// words. Empty previousQuestion yields an empty summary without a
	// round trip.
	Summarize(ctx context.Context, previousQuestion, previousAnswer string) (string, error)

	// Classify runs a one-shot labeling completion: instruction is the
	// system prompt, input the text to label. The reply is expected to be
	// a short label.
	Classify(ctx context.Context, instruction, input string) (string, error)

	// Close releases resources held by the generator.
	Close() error
}
