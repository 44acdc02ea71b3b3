package testutils

import (
	"context"
	"fmt"

	"github.com/sudo-OMsharma/personabrain/pkg/llm"
)

// MockGenerator is a test generator that records requests and returns canned
// replies.
type MockGenerator struct {
	// Reply is returned from Chat.
	Reply string

	// Summary is returned from Summarize for non-empty questions.
	Summary string

	// Label is returned from Classify.
	Label string

	// Fail causes every call to return an error.
	Fail bool

	// ChatRequests records every Chat call.
	ChatRequests []llm.ChatRequest
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Reply:   "mock answer",
		Summary: "mock summary",
		Label:   "neutral",
	}
}

func (m *MockGenerator) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	if m.Fail {
		return "", fmt.Errorf("%w: mock chat failure", llm.ErrUpstream)
	}
	m.ChatRequests = append(m.ChatRequests, req)
	return m.Reply, nil
}

func (m *MockGenerator) Summarize(_ context.Context, previousQuestion, _ string) (string, error) {
	if m.Fail {
		return "", fmt.Errorf("%w: mock summarize failure", llm.ErrUpstream)
	}
	if previousQuestion == "" {
		return "", nil
	}
	return m.Summary, nil
}

func (m *MockGenerator) Classify(_ context.Context, _, _ string) (string, error) {
	if m.Fail {
		return "", fmt.Errorf("%w: mock classify failure", llm.ErrUpstream)
	}
	return m.Label, nil
}

func (m *MockGenerator) Close() error {
	return nil
}

var _ llm.Generator = (*MockGenerator)(nil)
