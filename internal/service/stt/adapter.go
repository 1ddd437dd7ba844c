// Package stt defines the port for speech-to-text providers.
package stt

import (
	"context"
	"io"
)

// Request is a single audio payload to transcribe.
type Request struct {
	// Audio is read to EOF by the adapter.
	Audio io.Reader

	// Filename carries the container format (by extension) for providers that need it.
	Filename string

	// Hint is an optional vocabulary/keyword aid, passed through verbatim.
	Hint string
}

// Adapter is a speech-to-text provider (OpenAI, Google, mock).
//
// Implementations classify failures as models.ErrInvalidAudio when the
// provider rejects the payload and models.ErrUpstreamUnavailable otherwise.
type Adapter interface {
	// Name identifies the provider in logs, metrics and events.
	Name() string

	// Transcribe converts the audio to text. It blocks until the provider answers.
	Transcribe(ctx context.Context, req Request) (string, error)
}
