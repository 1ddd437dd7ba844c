// Package models defines the records, requests and events shared across the service.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholder is the marker inside a prompt template that is replaced by a transcript.
const Placeholder = "{transcription}"

// DefaultTemperature is applied when a completion request omits the temperature.
const DefaultTemperature = 0.5

// VideoRecord is an uploaded media item and, once computed, its transcript.
type VideoRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourcePath string    `json:"-"`
	Transcript string    `json:"transcription,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Transcribed reports whether the record carries a non-empty transcript.
func (v VideoRecord) Transcribed() bool {
	return v.Transcript != ""
}

// PromptTemplate is a reusable prompt containing the Placeholder.
type PromptTemplate struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Template string `json:"template" yaml:"template"`
}

// Validate checks the template is usable by the completion service.
func (p PromptTemplate) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: prompt id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: prompt %q has no title", ErrValidation, p.ID)
	}
	if !strings.Contains(p.Template, Placeholder) {
		return fmt.Errorf("%w: prompt %q does not contain %s", ErrValidation, p.ID, Placeholder)
	}
	return nil
}

// CompletionRequest is a single user submission for a streamed completion.
type CompletionRequest struct {
	VideoID     string  `json:"videoId"`
	PromptText  string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

// Validate rejects malformed requests. Temperature is never clamped.
func (r CompletionRequest) Validate() error {
	if math.IsNaN(r.Temperature) || r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("%w: temperature %v outside [0, 1]", ErrInvalidParameter, r.Temperature)
	}
	if err := ValidateVideoID(r.VideoID); err != nil {
		return err
	}
	if strings.TrimSpace(r.PromptText) == "" {
		return fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	return nil
}

// ValidateVideoID checks that id is a well-formed UUID.
func ValidateVideoID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: videoId is required", ErrValidation)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: videoId %q is not a valid UUID", ErrValidation, id)
	}
	return nil
}

// TranscriptEvent is published after a transcript is stored.
type TranscriptEvent struct {
	EventType  string `json:"eventType"`
	VideoID    string `json:"videoId"`
	Provider   string `json:"provider"`
	Characters int    `json:"characters"`
	Timestamp  int64  `json:"timestamp"`
}

// CompletionEvent is published once a completion stream ends, successfully or not.
// The generated text itself is never published.
type CompletionEvent struct {
	EventType   string  `json:"eventType"`
	VideoID     string  `json:"videoId"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Chunks      int     `json:"chunks"`
	Completed   bool    `json:"completed"`
	Timestamp   int64   `json:"timestamp"`
}

const (
	EventVideoTranscribed   = "video.transcribed"
	EventCompletionFinished = "completion.finished"
)

// StreamMessage is one WebSocket text frame of a completion stream.
// Exactly one of Chunk or Error is set.
type StreamMessage struct {
	Chunk string `json:"chunk,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Trailers sent by the chunked completion endpoint when the stream fails
// after the status line has been written.
const (
	TrailerCompletionCode  = "X-Completion-Code"
	TrailerCompletionError = "X-Completion-Error"
)
