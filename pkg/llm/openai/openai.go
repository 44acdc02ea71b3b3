// Package openai implements pkg/llm's Generator against OpenAI's Chat
// Completions API, rotating API keys through a keypool.Pool.
//
// Rate limits never surface to callers: a 429 saturates the current key for
// its whole window, the driver backs off briefly and retries on the next key.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/chunker"
	"github.com/sudo-OMsharma/personabrain/pkg/keypool"
	"github.com/sudo-OMsharma/personabrain/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// rateLimitBackoff is how long to wait after a 429 before retrying on
	// the next key.
	rateLimitBackoff = 2 * time.Second

	// maxAttempts bounds the rotate-and-retry loop so a fully saturated
	// pool cannot spin forever.
	maxAttempts = 5
)

// maskToxicityInstruction is appended to the persona prompt when the caller
// asks for toxicity masking. Matched words keep their first and last letter,
// everything between becomes asterisks.
const maskToxicityInstruction = `For each toxic word in the answer, keep the first and last letter and replace every letter in between with asterisks (*). Toxic words include profanity, swear words, hate speech, sexual content, violent or threatening words, insults, slurs, vulgar expressions, and any phrase considered rude, disrespectful, or hurtful in any social or cultural context.`

// Config holds configuration for the OpenAI generator.
type Config struct {
	// BaseURL is the API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// Generator wraps the Chat Completions API.
type Generator struct {
	baseURL    string
	model      string
	pool       *keypool.Pool
	httpClient *http.Client
	logger     *zap.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewGenerator creates a generator drawing keys from pool.
func NewGenerator(cfg Config, pool *keypool.Pool, logger *zap.Logger) (*Generator, error) {
	if pool == nil {
		return nil, fmt.Errorf("key pool is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		pool:    pool,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
		sleep:  time.Sleep,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat generates an in-persona answer for the request.
func (g *Generator) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	return g.complete(ctx, personaPrompt(req), req.Question, 0.2)
}

// Summarize condenses a previous question/answer pair into 30-40 words.
func (g *Generator) Summarize(ctx context.Context, previousQuestion, previousAnswer string) (string, error) {
	if strings.TrimSpace(previousQuestion) == "" {
		return "", nil
	}

	system := "You summarize a question and answer pair within 30-40 words in English. The summary must keep the main context. Return only the summary."
	user := fmt.Sprintf("Question: %s\nAnswer: %s\nSummarize the above content within 30-40 words.",
		previousQuestion, previousAnswer)

	return g.complete(ctx, system, user, 0.2)
}

// Classify runs a one-shot labeling completion.
func (g *Generator) Classify(ctx context.Context, instruction, input string) (string, error) {
	label, err := g.complete(ctx, instruction, input, 0.0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(label), nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

func (g *Generator) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		key, err := g.pool.Next()
		if err != nil {
			g.logger.Warn("key pool exhausted, backing off", zap.Error(err))
			lastErr = err
			g.sleep(rateLimitBackoff)
			continue
		}

		answer, err := g.send(ctx, key, system, user, temperature)
		if err == nil {
			g.pool.Record(key, chunker.WordCount(answer))
			return answer, nil
		}

		if isRateLimit(err) {
			g.logger.Warn("upstream rate limit, rotating key", zap.Error(err))
			g.pool.Saturate(key)
			lastErr = err
			g.sleep(rateLimitBackoff)
			continue
		}

		return "", err
	}

	return "", fmt.Errorf("%w: retries exhausted: %v", llm.ErrUpstream, lastErr)
}

type rateLimitError struct {
	body string
}

func (e *rateLimitError) Error() string {
	return "rate limited: " + e.body
}

func isRateLimit(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}

func (g *Generator) send(ctx context.Context, key, system, user string, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model:       g.model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", llm.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", llm.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", llm.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return "", &rateLimitError{body: string(body)}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", llm.ErrUpstream, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrUpstream, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", llm.ErrUpstream)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// personaPrompt assembles the system prompt for an in-persona answer.
func personaPrompt(req llm.ChatRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Abide by the following rules:\n", req.PersonalityName)
	fmt.Fprintf(&b, "1. Behave consistently as %s. All questions are in reference to you.\n", req.PersonalityName)
	fmt.Fprintf(&b, "2. Strictly avoid replies starting with \"As %s\".\n", req.PersonalityName)
	fmt.Fprintf(&b, "3. You are not an AI model; you are %s.\n", req.PersonalityName)
	b.WriteString("4. If unable to answer, strictly only respond with \"I am unable to answer that question, please ask me something else\".\n")
	fmt.Fprintf(&b, "5. If asked who %s is, only tell your name and take reference from information given in the prompt. If no information is given, strictly only tell your name.\n", req.PersonalityName)
	fmt.Fprintf(&b, "6. If the current question %q is a greeting such as \"Hi\", \"Hello\" or \"How are you\", strictly only greet the user accordingly and do not refer to the context.\n", req.Question)
	fmt.Fprintf(&b, "7. For answering %q, take reference from the context %q when it holds relevant information. If it does not, use your general knowledge to answer accurately.\n", req.Question, req.Context)
	b.WriteString("8. If the current question has no meaning, strictly only reply with \"I am unable to answer that question, please ask me something else.\"\n")
	fmt.Fprintf(&b, "9. You MUST answer in the language of %q without any exceptions.\n", req.OriginalQuestion)
	fmt.Fprintf(&b, "10. Strictly keep the response within %d words.\n", req.WordLimit)
	b.WriteString("11. Always match the emotional tone and formality level of the question.\n")
	if req.MaskToxicity {
		b.WriteString("12. " + maskToxicityInstruction + "\n")
	}
	return b.String()
}

var _ llm.Generator = (*Generator)(nil)
