// Package completion substitutes a stored transcript into a prompt template
// and streams the generated text back from a language model.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"upload-ai-service/internal/events"
	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
	"upload-ai-service/internal/observability/metrics"
	"upload-ai-service/internal/service/llm"
	"upload-ai-service/internal/store"
)

// DefaultTimeout bounds a whole completion stream, first byte to last.
const DefaultTimeout = 2 * time.Minute

// Service opens completion streams for transcribed videos.
type Service struct {
	store     store.Store
	adapter   llm.Adapter
	publisher *events.Publisher
	metrics   *metrics.Metrics
	model     string
	timeout   time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a completion service sending requests for model.
func New(st store.Store, adapter llm.Adapter, publisher *events.Publisher, model string, opts ...Option) *Service {
	s := &Service{
		store:     st,
		adapter:   adapter,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		model:     model,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Substitute replaces every occurrence of the placeholder in template with
// transcript. The transcript is inserted verbatim and never re-scanned.
func Substitute(template, transcript string) string {
	return strings.ReplaceAll(template, models.Placeholder, transcript)
}

// Complete validates req, resolves the transcript and opens the upstream stream.
// The caller must Close the returned Stream.
func (s *Service) Complete(ctx context.Context, req models.CompletionRequest) (*Stream, error) {
	if err := req.Validate(); err != nil {
		s.metrics.RecordCompletionRejected(models.Code(err))
		return nil, err
	}

	logger := logging.WithVideo("completion", req.VideoID)

	video, err := s.store.GetVideo(ctx, req.VideoID)
	if err != nil {
		s.metrics.RecordCompletionRejected(models.Code(err))
		return nil, err
	}
	if !video.Transcribed() {
		s.metrics.RecordCompletionRejected(models.CodeTranscriptNotReady)
		return nil, fmt.Errorf("video %s: %w", req.VideoID, models.ErrTranscriptNotReady)
	}

	prompt := Substitute(req.PromptText, video.Transcript)

	streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
	upstream, err := s.adapter.Stream(streamCtx, llm.Request{
		Model:       s.model,
		Prompt:      prompt,
		Temperature: req.Temperature,
	})
	if err != nil {
		cancel()
		if !errors.Is(err, models.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
		}
		s.metrics.RecordCompletionRejected(models.Code(err))
		logger.Warn().Err(err).Str("provider", s.adapter.Name()).Msg("Failed to open completion stream")
		return nil, err
	}

	s.metrics.RecordCompletionStart()
	logger.Debug().
		Str("provider", s.adapter.Name()).
		Str("model", s.model).
		Float64("temperature", req.Temperature).
		Int("promptChars", len(prompt)).
		Msg("Completion stream opened")

	return &Stream{
		ctx:         streamCtx,
		cancel:      cancel,
		upstream:    upstream,
		service:     s,
		videoID:     req.VideoID,
		temperature: req.Temperature,
		started:     time.Now(),
	}, nil
}
