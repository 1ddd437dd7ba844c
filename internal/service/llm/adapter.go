// Package llm defines the port for streaming text-generation providers.
package llm

import "context"

// Request is a fully substituted prompt sent upstream.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
}

// Stream yields generated text incrementally.
//
// Recv returns the next non-empty fragment, or io.EOF once the provider has
// finished. Close aborts the upstream request; Recv must not be called after Close.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Adapter is a text-generation provider (OpenAI, mock).
//
// Implementations classify failures as models.ErrUpstreamUnavailable.
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Stream opens an incremental completion. The stream is bound to ctx.
	Stream(ctx context.Context, req Request) (Stream, error)
}
