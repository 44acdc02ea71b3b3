// Package classify annotates generated answers with best-effort cosmetic
// signals: the emotion of the answer and the language of the question. Both
// are advisory; every failure falls back to a neutral default instead of
// surfacing an error.
package classify

import (
	"context"
	"strings"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/llm"
)

const (
	// DefaultLanguage is returned when detection fails.
	DefaultLanguage = "en"

	// DefaultEmotion is returned when classification fails.
	DefaultEmotion = "neutral"
)

// emotions are the labels answers can carry, from most positive to most
// negative.
var emotions = []string{
	"joy",
	"excitement",
	"contentment",
	"neutral",
	"sadness",
	"anger",
	"despair",
}

const emotionInstruction = `You classify the emotional tone of a text. Respond with exactly one of these labels and nothing else: joy, excitement, contentment, neutral, sadness, anger, despair.`

// Classifier detects answer emotion and question language.
type Classifier struct {
	detector  lingua.LanguageDetector
	generator llm.Generator
	logger    *zap.Logger
}

// New builds a classifier. Language detection is local; emotion
// classification goes through the generator.
func New(generator llm.Generator, logger *zap.Logger) *Classifier {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Classifier{
		detector:  detector,
		generator: generator,
		logger:    logger,
	}
}

// Language returns the ISO 639-1 code of the text's language, or
// DefaultLanguage when detection is inconclusive.
func (c *Classifier) Language(text string) string {
	language, ok := c.detector.DetectLanguageOf(text)
	if !ok {
		c.logger.Warn("language detection inconclusive, using default")
		return DefaultLanguage
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

// Emotion returns the emotional tone of the text, or DefaultEmotion when
// classification fails or yields an unknown label.
func (c *Classifier) Emotion(ctx context.Context, text string) string {
	label, err := c.generator.Classify(ctx, emotionInstruction, text)
	if err != nil {
		c.logger.Warn("emotion classification failed, using default", zap.Error(err))
		return DefaultEmotion
	}

	label = strings.ToLower(strings.TrimSpace(label))
	for _, e := range emotions {
		if label == e {
			return label
		}
	}

	c.logger.Warn("emotion classification returned unknown label, using default",
		zap.String("label", label),
	)
	return DefaultEmotion
}
