// Package retrieval orchestrates answering a question against a brain:
// load the brain, build the effective query, search, attribute hits to
// files, generate the answer in persona, and annotate it.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/classify"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
	"github.com/sudo-OMsharma/personabrain/pkg/llm"
	"github.com/sudo-OMsharma/personabrain/pkg/utils"
)

const (
	// searchK is how many chunks retrieval feeds into generation.
	searchK = 7

	// DefaultWordLimit is the answer word budget when the caller sends
	// none.
	DefaultWordLimit = 30

	// MinWordLimit replaces budgets below 10; shorter budgets produce
	// unusable answers.
	MinWordLimit = 15
)

// AskRequest is one question against one brain.
type AskRequest struct {
	BrainName        string
	Question         string
	WordLimit        int
	MaskToxicity     bool
	PreviousQuestion string
	PreviousAnswer   string
}

// Answer is the annotated generation result.
type Answer struct {
	Answer        string                 `json:"answer"`
	Emotion       string                 `json:"emotion"`
	Language      string                 `json:"language"`
	VoiceSettings classify.VoiceSettings `json:"voice_settings"`
	MaskToxicity  bool                   `json:"toxic_filter"`
}

// Orchestrator runs the ask flow.
type Orchestrator struct {
	cache      *brain.Cache
	generator  llm.Generator
	classifier *classify.Classifier
	events     eventstream.Publisher
	logger     *zap.Logger
}

// New creates an orchestrator.
func New(cache *brain.Cache, generator llm.Generator, classifier *classify.Classifier, events eventstream.Publisher, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cache:      cache,
		generator:  generator,
		classifier: classifier,
		events:     events,
		logger:     logger,
	}
}

// Ask answers the question against the named brain. The brain's lock is held
// from load through generation, so a concurrent mutation of the same brain
// cannot interleave.
func (o *Orchestrator) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	if strings.TrimSpace(req.BrainName) == "" {
		return nil, fmt.Errorf("%w: brainName cannot be empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: current_user_question cannot be empty", ErrInvalidArgument)
	}

	wordLimit := req.WordLimit
	if wordLimit == 0 {
		wordLimit = DefaultWordLimit
	} else if wordLimit < 10 {
		wordLimit = MinWordLimit
	}

	// Summarizing the previous turn happens before taking the brain lock;
	// it does not touch the index.
	summary, err := o.generator.Summarize(ctx, req.PreviousQuestion, req.PreviousAnswer)
	if err != nil {
		return nil, err
	}

	var answer *Answer
	err = o.cache.WithEntry(ctx, req.BrainName, func(entry *brain.Entry) error {
		// Self-referential questions get the persona appended so the
		// search lands on identity chunks; everything else carries the
		// conversation summary for continuity.
		var effectiveQuery string
		if strings.Contains(strings.ToLower(req.Question), "you") {
			effectiveQuery = req.Question + "I am " + entry.Ledger.PersonalityName
		} else {
			effectiveQuery = summary + req.Question
		}

		hits, err := entry.Index.Search(ctx, effectiveQuery, searchK)
		if err != nil {
			return fmt.Errorf("searching brain %s: %w", req.BrainName, err)
		}

		o.logger.Info("search completed",
			zap.String("brain", req.BrainName),
			zap.String("query", utils.Truncate(effectiveQuery, 120)),
			zap.Int("hits", len(hits)),
		)

		var contextLines strings.Builder
		for _, hit := range hits {
			filename, ok := entry.Ledger.ResolveFileForID(hit.ID)
			if !ok {
				// Stale index entries can outlive their file briefly.
				continue
			}
			contextLines.WriteString(filename)
			contextLines.WriteString(" --> ")
			contextLines.WriteString(hit.Text)
			contextLines.WriteString("\n")
		}

		text, err := o.generator.Chat(ctx, llm.ChatRequest{
			PersonalityName:  entry.Ledger.PersonalityName,
			Question:         effectiveQuery,
			OriginalQuestion: req.Question,
			Context:          contextLines.String(),
			WordLimit:        wordLimit,
			MaskToxicity:     req.MaskToxicity,
		})
		if err != nil {
			return err
		}

		emotion := o.classifier.Emotion(ctx, text)
		answer = &Answer{
			Answer:        text,
			Emotion:       emotion,
			Language:      o.classifier.Language(req.Question),
			VoiceSettings: classify.VoiceSettingsFor(emotion),
			MaskToxicity:  req.MaskToxicity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := o.events.PublishBrainEvent(ctx, eventstream.NewAnswerGenerated(req.BrainName, req.Question)); err != nil {
		o.logger.Warn("failed to publish answer event", zap.Error(err))
	}

	return answer, nil
}
