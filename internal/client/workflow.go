package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"upload-ai-service/internal/media"
	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
)

// API is the part of Client used by Workflow.
type API interface {
	UploadAudio(ctx context.Context, path string) (models.VideoRecord, error)
	Transcribe(ctx context.Context, id, hint string) (string, error)
	Complete(ctx context.Context, req models.CompletionRequest, w io.Writer) error
	CompleteWS(ctx context.Context, req models.CompletionRequest, w io.Writer) error
}

// availability is implemented by extractors that can report a missing engine up front.
type availability interface {
	Available() error
}

// WorkflowConfig tunes a Workflow.
type WorkflowConfig struct {
	// Format of the extracted audio. Defaults to mp3.
	Format media.Format
	// WorkDir receives the extracted audio. Defaults to a fresh temp dir per run.
	WorkDir string
	// WebSocket streams completions over the WebSocket endpoint.
	WebSocket bool
	// OnStatus is called after every status change.
	OnStatus func(Status)
	// OnProgress receives extraction progress.
	OnProgress media.ProgressFunc
}

// Workflow runs the extract, upload, transcribe and complete sequence for one video at a time.
type Workflow struct {
	api       API
	extractor media.Extractor
	cfg       WorkflowConfig
	lifecycle *Lifecycle
	logger    zerolog.Logger

	videoID string
}

// NewWorkflow creates a workflow in the waiting status.
func NewWorkflow(api API, extractor media.Extractor, cfg WorkflowConfig) *Workflow {
	if cfg.Format == "" {
		cfg.Format = media.FormatMP3
	}
	return &Workflow{
		api:       api,
		extractor: extractor,
		cfg:       cfg,
		lifecycle: NewLifecycle(cfg.OnStatus),
		logger:    logging.WithComponent("workflow"),
	}
}

// Status returns the current status.
func (w *Workflow) Status() Status { return w.lifecycle.Status() }

// VideoID returns the id of the prepared video, empty before upload.
func (w *Workflow) VideoID() string { return w.videoID }

// Reset discards the current run so a new video can be prepared.
func (w *Workflow) Reset() {
	w.videoID = ""
	w.lifecycle.Reset()
}

// Prepare extracts audio from videoPath, uploads it and waits for the transcript.
// Any failure leaves the workflow in StatusError until Reset.
func (w *Workflow) Prepare(ctx context.Context, videoPath, hint string) (string, string, error) {
	if s := w.lifecycle.Status(); s != StatusWaiting {
		if s == StatusError {
			return "", "", ErrWorkflowFailed
		}
		return "", "", fmt.Errorf("%w: prepare from %s", ErrInvalidTransition, s)
	}

	// A missing engine must stop the run before anything is sent.
	if a, ok := w.extractor.(availability); ok {
		if err := a.Available(); err != nil {
			return "", "", w.fail(err)
		}
	}

	if err := w.lifecycle.Advance(StatusConverting); err != nil {
		return "", "", err
	}

	workDir := w.cfg.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "uploadai-")
		if err != nil {
			return "", "", w.fail(err)
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	audioPath, err := w.extractor.Extract(ctx, videoPath, workDir, w.cfg.Format, w.cfg.OnProgress)
	if err != nil {
		return "", "", w.fail(fmt.Errorf("extract audio: %w", err))
	}
	w.logger.Debug().Str("audio", audioPath).Msg("Audio extracted")

	if err := w.lifecycle.Advance(StatusUploading); err != nil {
		return "", "", w.fail(err)
	}
	video, err := w.api.UploadAudio(ctx, audioPath)
	if err != nil {
		return "", "", w.fail(fmt.Errorf("upload: %w", err))
	}
	w.videoID = video.ID

	if err := w.lifecycle.Advance(StatusGenerating); err != nil {
		return "", "", w.fail(err)
	}
	transcript, err := w.api.Transcribe(ctx, video.ID, hint)
	if err != nil {
		return "", "", w.fail(fmt.Errorf("transcribe: %w", err))
	}

	if err := w.lifecycle.Advance(StatusSuccess); err != nil {
		return "", "", w.fail(err)
	}
	w.logger.Info().
		Str("videoId", video.ID).
		Int("characters", len(transcript)).
		Msg("Video prepared")
	return video.ID, transcript, nil
}

// Complete streams a completion for the prepared video into out.
// The workflow must have reached StatusSuccess; any failure, including an
// invalid temperature, moves it to StatusError.
func (w *Workflow) Complete(ctx context.Context, promptText string, temperature float64, out io.Writer) error {
	switch s := w.lifecycle.Status(); s {
	case StatusSuccess:
	case StatusError:
		return ErrWorkflowFailed
	default:
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s)
	}

	req := models.CompletionRequest{VideoID: w.videoID, PromptText: promptText, Temperature: temperature}
	if err := req.Validate(); err != nil {
		w.lifecycle.ForceFail()
		w.logger.Warn().Err(err).Str("videoId", w.videoID).Msg("Completion rejected")
		return err
	}

	complete := w.api.Complete
	if w.cfg.WebSocket {
		complete = w.api.CompleteWS
	}
	if err := complete(ctx, req, out); err != nil {
		w.lifecycle.ForceFail()
		w.logger.Warn().Err(err).Str("videoId", w.videoID).Msg("Completion failed")
		return err
	}
	return nil
}

func (w *Workflow) fail(err error) error {
	w.lifecycle.Fail()
	level := w.logger.Warn()
	if errors.Is(err, models.ErrMediaEngineUnavailable) {
		level = w.logger.Error()
	}
	level.Err(err).Str("status", StatusError.String()).Msg("Workflow failed")
	return err
}
