// Package mock provides a deterministic STT adapter for running without cloud credentials.
package mock

import (
	"context"
	"fmt"
	"io"
	"time"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/stt"
)

// DefaultTranscript is returned for every non-empty payload unless overridden.
const DefaultTranscript = "This is a simulated transcription of the uploaded audio."

// Adapter implements stt.Adapter with canned responses.
type Adapter struct {
	Transcript string
	Delay      time.Duration
}

// New creates a new mock STT adapter.
func New() *Adapter {
	return &Adapter{Transcript: DefaultTranscript}
}

func (a *Adapter) Name() string { return "mock" }

// Transcribe drains the audio, rejecting empty payloads, and returns the canned text.
// When the hint is set it is appended so callers can see it was forwarded.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	n, err := io.Copy(io.Discard, req.Audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty payload", models.ErrInvalidAudio)
	}

	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, ctx.Err())
		}
	}

	text := a.Transcript
	if req.Hint != "" {
		text += " Keywords: " + req.Hint + "."
	}
	return text, nil
}
