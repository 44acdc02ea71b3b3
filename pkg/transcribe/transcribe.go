// Package transcribe converts uploaded audio files to text through OpenAI's
// Whisper transcription API, drawing keys from the same pool as generation.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/keypool"
	"github.com/sudo-OMsharma/personabrain/pkg/llm"
)

const (
	// DefaultModel is the default transcription model.
	DefaultModel = "whisper-1"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Config holds configuration for the transcriber.
type Config struct {
	// BaseURL is the API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the transcription model. Defaults to DefaultModel if empty.
	Model string
}

// Transcriber wraps the Whisper transcription API.
type Transcriber struct {
	baseURL    string
	model      string
	pool       *keypool.Pool
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a transcriber drawing keys from pool.
func New(cfg Config, pool *keypool.Pool, logger *zap.Logger) (*Transcriber, error) {
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

	return &Transcriber{
		baseURL: baseURL,
		model:   model,
		pool:    pool,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the audio file at path to the transcription API and
// returns its text.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	key, err := t.pool.Next()
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrUpstream, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening audio file %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading audio file %s: %w", path, err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", llm.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", llm.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", llm.ErrUpstream, resp.StatusCode, string(raw))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrUpstream, err)
	}

	t.logger.Debug("audio transcribed", zap.String("file", filepath.Base(path)))
	return tr.Text, nil
}
