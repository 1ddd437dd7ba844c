package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
	"upload-ai-service/internal/service/llm"
)

// Stream is a single-pass sequence of completion chunks.
//
// Recv and Close are meant to be called from one goroutine. To abort from
// elsewhere, cancel the context passed to Complete.
type Stream struct {
	ctx         context.Context
	cancel      context.CancelFunc
	upstream    llm.Stream
	service     *Service
	videoID     string
	temperature float64
	started     time.Time

	mu     sync.Mutex
	closed bool
	chunks int
	result string
	err    error

	finishOnce sync.Once
}

// Recv returns the next chunk, or io.EOF once the provider has finished.
// After Close, or after any terminal error, the upstream is not consulted again.
func (s *Stream) Recv() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", io.ErrClosedPipe
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	chunk, err := s.upstream.Recv()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.chunks++
		s.service.metrics.RecordCompletionChunk()
		return chunk, nil
	case errors.Is(err, io.EOF):
		s.err = io.EOF
		s.result = "success"
	case errors.Is(s.ctx.Err(), context.Canceled):
		s.err = fmt.Errorf("completion cancelled: %w", context.Canceled)
		s.result = "cancelled"
	default:
		if !errors.Is(err, models.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
		}
		s.err = err
		s.result = models.Code(err)
	}
	return "", s.err
}

// Chunks reports how many chunks have been delivered so far.
func (s *Stream) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Close cancels the upstream request and publishes the completion event.
// It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	var closeErr error
	s.finishOnce.Do(func() {
		s.cancel()
		closeErr = s.upstream.Close()
		s.finish()
	})
	return closeErr
}

func (s *Stream) finish() {
	s.mu.Lock()
	result := s.result
	chunks := s.chunks
	s.mu.Unlock()

	if result == "" {
		result = "cancelled"
	}
	completed := result == "success"

	svc := s.service
	elapsed := time.Since(s.started)
	svc.metrics.RecordCompletionEnd(svc.model, result, elapsed.Seconds())

	logger := logging.WithVideo("completion", s.videoID)
	logger.Info().
		Str("result", result).
		Int("chunks", chunks).
		Dur("duration", elapsed).
		Msg("Completion stream finished")

	ev := models.CompletionEvent{
		EventType:   models.EventCompletionFinished,
		VideoID:     s.videoID,
		Model:       svc.model,
		Temperature: s.temperature,
		Chunks:      chunks,
		Completed:   completed,
		Timestamp:   time.Now().UnixMilli(),
	}
	// The stream context is already cancelled here.
	if err := svc.publisher.PublishCompletion(context.WithoutCancel(s.ctx), ev); err != nil {
		logger.Error().Err(err).Msg("Failed to publish completion event")
	}
}
