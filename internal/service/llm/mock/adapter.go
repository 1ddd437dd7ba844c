// Package mock provides a deterministic text-generation adapter.
package mock

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/llm"
)

// Adapter streams back a canned answer word by word.
// When Chunks is empty the prompt itself is echoed.
type Adapter struct {
	Chunks []string
	Delay  time.Duration

	// Err, when set, is returned by Recv in place of io.EOF once the chunks run out.
	Err error

	mu       sync.Mutex
	requests []llm.Request
}

// New creates a new mock LLM adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Name() string { return "mock" }

func (a *Adapter) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	chunks := a.Chunks
	if len(chunks) == 0 {
		chunks = splitWords(req.Prompt)
	}
	return &stream{ctx: ctx, chunks: chunks, delay: a.Delay, err: a.Err}, nil
}

// Requests returns the requests received so far.
func (a *Adapter) Requests() []llm.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Request(nil), a.requests...)
}

type stream struct {
	ctx    context.Context
	chunks []string
	next   int
	delay  time.Duration
	err    error
	closed bool
}

func (s *stream) Recv() (string, error) {
	if s.closed {
		return "", io.ErrClosedPipe
	}
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
	}
	if s.next >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			return "", fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, s.ctx.Err())
		}
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

// splitWords keeps the separating whitespace so chunks concatenate back to the input.
func splitWords(text string) []string {
	var out []string
	for len(text) > 0 {
		i := strings.IndexAny(text[1:], " \n\t")
		if i < 0 {
			out = append(out, text)
			break
		}
		out = append(out, text[:i+1])
		text = text[i+1:]
	}
	return out
}
