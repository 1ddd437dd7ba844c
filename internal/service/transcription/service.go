// Package transcription turns stored audio into text through an STT adapter
// and records the result in the transcript store.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"upload-ai-service/internal/events"
	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
	"upload-ai-service/internal/observability/metrics"
	"upload-ai-service/internal/service/stt"
	"upload-ai-service/internal/store"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 2 * time.Minute

// Service coordinates the STT adapter, the store and the event publisher.
type Service struct {
	store     store.Store
	adapter   stt.Adapter
	publisher *events.Publisher
	metrics   *metrics.Metrics
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

// New creates a transcription service.
func New(st store.Store, adapter stt.Adapter, publisher *events.Publisher, opts ...Option) *Service {
	s := &Service{
		store:     st,
		adapter:   adapter,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcribe converts the audio of videoID to text and stores it.
// hint is forwarded to the provider verbatim. The store is only written on success.
func (s *Service) Transcribe(ctx context.Context, videoID, hint string) (string, error) {
	if err := models.ValidateVideoID(videoID); err != nil {
		return "", err
	}
	logger := logging.WithProvider("transcription", videoID, s.adapter.Name())

	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return "", err
	}
	if video.Transcribed() {
		return "", fmt.Errorf("video %s: %w", videoID, models.ErrAlreadyTranscribed)
	}

	f, err := os.Open(video.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: audio for video %s is missing", models.ErrInvalidAudio, videoID)
		}
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.adapter.Transcribe(callCtx, stt.Request{
		Audio:    f,
		Filename: filepath.Base(video.SourcePath),
		Hint:     hint,
	})
	latency := time.Since(start)

	if err != nil {
		// A deadline hit inside an adapter that did not classify it is still an upstream failure.
		if !errors.Is(err, models.ErrInvalidAudio) && !errors.Is(err, models.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
		}
		s.metrics.RecordTranscription(s.adapter.Name(), models.Code(err), latency.Seconds())
		logger.Warn().Err(err).Dur("latency", latency).Msg("Transcription failed")
		return "", err
	}

	if err := s.store.SetTranscript(ctx, videoID, text); err != nil {
		s.metrics.RecordTranscription(s.adapter.Name(), models.Code(err), latency.Seconds())
		logger.Error().Err(err).Msg("Failed to store transcript")
		return "", err
	}

	s.metrics.RecordTranscription(s.adapter.Name(), "success", latency.Seconds())
	logger.Info().
		Int("characters", len(text)).
		Dur("latency", latency).
		Msg("Video transcribed")

	ev := models.TranscriptEvent{
		EventType:  models.EventVideoTranscribed,
		VideoID:    videoID,
		Provider:   s.adapter.Name(),
		Characters: len(text),
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishTranscript(ctx, ev); err != nil {
		// The transcript is already stored; event delivery does not fail the request.
		logger.Error().Err(err).Msg("Failed to publish transcript event")
	}

	return text, nil
}
