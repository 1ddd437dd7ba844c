// Package http exposes the upload, transcription and completion operations over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
	"upload-ai-service/internal/observability/metrics"
	"upload-ai-service/internal/prompts"
	"upload-ai-service/internal/service/completion"
	"upload-ai-service/internal/store"
)

// DefaultMaxUploadBytes is the largest accepted audio file.
const DefaultMaxUploadBytes = 25 << 20

// AllowedExtensions lists the audio containers accepted by POST /videos.
var AllowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".webm": true,
	".m4a":  true,
}

// Transcriber is the transcription service as seen by the API.
type Transcriber interface {
	Transcribe(ctx context.Context, videoID, hint string) (string, error)
}

// Completer is the completion service as seen by the API.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (*completion.Stream, error)
}

// Config wires the API to its collaborators.
type Config struct {
	Store          store.Store
	Prompts        *prompts.Catalog
	Transcriber    Transcriber
	Completer      Completer
	UploadDir      string
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
}

// API serves the public HTTP endpoints.
type API struct {
	store       store.Store
	prompts     *prompts.Catalog
	transcriber Transcriber
	completer   Completer
	uploadDir   string
	maxUpload   int64
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewAPI creates the API and makes sure the upload directory exists.
func NewAPI(cfg Config) (*API, error) {
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "upload-ai")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}
	return &API{
		store:       cfg.Store,
		prompts:     cfg.Prompts,
		transcriber: cfg.Transcriber,
		completer:   cfg.Completer,
		uploadDir:   cfg.UploadDir,
		maxUpload:   cfg.MaxUploadBytes,
		metrics:     cfg.Metrics,
		logger:      logging.WithComponent("http"),
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type videoResponse struct {
	Video models.VideoRecord `json:"video"`
}

type transcriptionRequest struct {
	Prompt string `json:"prompt"`
}

type transcriptionResponse struct {
	Transcription string `json:"transcription"`
}

// completeRequest mirrors models.CompletionRequest with an optional temperature.
type completeRequest struct {
	VideoID     string   `json:"videoId"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature"`
}

func (c completeRequest) toModel() models.CompletionRequest {
	temp := models.DefaultTemperature
	if c.Temperature != nil {
		temp = *c.Temperature
	}
	return models.CompletionRequest{VideoID: c.VideoID, PromptText: c.Prompt, Temperature: temp}
}

func (a *API) listPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.prompts.List())
}

func (a *API) getPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := a.prompts.Get(chi.URLParam(r, "promptId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

var errTooLarge = errors.New("file too large")

func (a *API) uploadVideo(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+1<<20)

	video, size, err := a.receiveUpload(r)
	a.metrics.RecordUpload(size, err)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			writeErrorStatus(w, http.StatusRequestEntityTooLarge, models.CodeValidation, err.Error())
			return
		}
		a.writeError(w, r, err)
		return
	}
	a.metrics.RecordVideoCreated()

	a.logger.Info().
		Str("videoId", video.ID).
		Str("name", video.Name).
		Int64("bytes", size).
		Msg("Video uploaded")

	writeJSON(w, http.StatusCreated, videoResponse{Video: video})
}

func (a *API) receiveUpload(r *http.Request) (models.VideoRecord, int64, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return models.VideoRecord{}, 0, fmt.Errorf("%w: expected multipart/form-data: %w", models.ErrValidation, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return models.VideoRecord{}, 0, fmt.Errorf("%w: missing file input", models.ErrValidation)
		}
		if err != nil {
			return models.VideoRecord{}, 0, uploadReadError(err)
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}
		defer part.Close()
		return a.saveUpload(r.Context(), part)
	}
}

func (a *API) saveUpload(ctx context.Context, part *multipart.Part) (models.VideoRecord, int64, error) {
	name := filepath.Base(part.FileName())
	ext := strings.ToLower(filepath.Ext(name))
	if !AllowedExtensions[ext] {
		return models.VideoRecord{}, 0, fmt.Errorf("%w: unsupported file type %q", models.ErrValidation, ext)
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	dest := filepath.Join(a.uploadDir, fmt.Sprintf("%s-%s%s", base, uuid.NewString(), ext))

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return models.VideoRecord{}, 0, fmt.Errorf("create upload file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(part, a.maxUpload+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > a.maxUpload {
		err = fmt.Errorf("%w: limit is %d bytes", errTooLarge, a.maxUpload)
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("%w: empty file", models.ErrValidation)
	}
	if err != nil {
		os.Remove(dest)
		return models.VideoRecord{}, n, uploadReadError(err)
	}

	video, err := a.store.CreateVideo(ctx, name, dest)
	if err != nil {
		os.Remove(dest)
		return models.VideoRecord{}, n, err
	}
	return video, n, nil
}

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxErr.Limit)
	}
	return err
}

func (a *API) getVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoId")
	if err := models.ValidateVideoID(id); err != nil {
		a.writeError(w, r, err)
		return
	}
	video, err := a.store.GetVideo(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videoResponse{Video: video})
}

func (a *API) transcribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoId")
	if err := models.ValidateVideoID(id); err != nil {
		a.writeError(w, r, err)
		return
	}

	var body transcriptionRequest
	if err := decodeJSON(r, &body, true); err != nil {
		a.writeError(w, r, err)
		return
	}

	text, err := a.transcriber.Transcribe(r.Context(), id, body.Prompt)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transcriptionResponse{Transcription: text})
}

func (a *API) complete(w http.ResponseWriter, r *http.Request) {
	var body completeRequest
	if err := decodeJSON(r, &body, false); err != nil {
		a.writeError(w, r, err)
		return
	}

	stream, err := a.completer.Complete(r.Context(), body.toModel())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	defer stream.Close()

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Add("Trailer", models.TrailerCompletionCode)
	h.Add("Trailer", models.TrailerCompletionError)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	logger := logging.WithVideo("http", body.VideoID)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// The status line is gone, so the failure travels in the trailers.
			logger.Warn().Err(err).Int("chunks", stream.Chunks()).Msg("Completion stream aborted")
			code := models.Code(err)
			msg := err.Error()
			if code == models.CodeInternal {
				msg = "internal error"
			}
			h.Set(models.TrailerCompletionCode, code)
			h.Set(models.TrailerCompletionError, msg)
			return
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			logger.Debug().Err(err).Msg("Client went away")
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return
		}
	}
}

// decodeJSON reads a JSON body into v. When optional is set an empty body is accepted.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %w", models.ErrValidation, err)
	}
	return nil
}

// StatusFor maps an error of the taxonomy to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrTranscriptNotReady):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyTranscribed):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidAudio):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrMediaEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := models.Code(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error().
			Err(err).
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		msg = "internal error"
	}
	writeErrorStatus(w, status, code, msg)
}

func writeErrorStatus(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

