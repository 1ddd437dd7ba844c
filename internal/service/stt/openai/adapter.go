// Package openai provides a Whisper speech-to-text adapter.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/stt"
)

// Config holds Whisper request settings.
type Config struct {
	Model    string
	Language string // empty lets the provider detect the language
}

// DefaultConfig returns whisper-1 with language auto-detection.
func DefaultConfig() Config {
	return Config{Model: openai.Whisper1}
}

// Adapter implements stt.Adapter using the OpenAI audio transcription API.
type Adapter struct {
	client *openai.Client
	cfg    Config
}

// New creates an adapter around an existing client.
func New(client *openai.Client, cfg Config) *Adapter {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	return &Adapter{client: client, cfg: cfg}
}

func (a *Adapter) Name() string { return "openai" }

// Transcribe sends the audio and asks for a JSON response.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	filename := req.Filename
	if filename == "" {
		filename = "audio.mp3"
	}

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.cfg.Model,
		Reader:   req.Audio,
		FilePath: filename,
		Prompt:   req.Hint,
		Language: a.cfg.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: no speech recognized", models.ErrInvalidAudio)
	}
	return text, nil
}

// classify maps go-openai errors onto the service taxonomy.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", models.ErrInvalidAudio, err)
	default:
		return fmt.Errorf("%w: openai transcription: %w", models.ErrUpstreamUnavailable, err)
	}
}
