package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"upload-ai-service/internal/media"
	"upload-ai-service/internal/models"
)

// testExtractor implements media.Extractor for testing
type testExtractor struct {
	unavailable error
	err         error
	calls       int
	format      media.Format
}

func (e *testExtractor) Available() error { return e.unavailable }

func (e *testExtractor) Extract(ctx context.Context, videoPath, outDir string, format media.Format, progress media.ProgressFunc) (string, error) {
	e.calls++
	e.format = format
	if e.err != nil {
		return "", e.err
	}
	if progress != nil {
		progress(0)
		progress(100)
	}
	out := media.OutputPath(videoPath, outDir, format)
	return out, os.WriteFile(out, []byte("audio"), 0o600)
}

// testAPI records the calls made by the workflow.
type testAPI struct {
	uploadErr     error
	transcribeErr error
	completeErr   error
	chunks        []string

	uploads     []string
	hints       []string
	completions []models.CompletionRequest
	viaWS       bool
}

func (a *testAPI) UploadAudio(ctx context.Context, path string) (models.VideoRecord, error) {
	a.uploads = append(a.uploads, path)
	if a.uploadErr != nil {
		return models.VideoRecord{}, a.uploadErr
	}
	return models.VideoRecord{ID: testVideoID, Name: filepath.Base(path)}, nil
}

func (a *testAPI) Transcribe(ctx context.Context, id, hint string) (string, error) {
	a.hints = append(a.hints, hint)
	if a.transcribeErr != nil {
		return "", a.transcribeErr
	}
	return "hello world", nil
}

func (a *testAPI) Complete(ctx context.Context, req models.CompletionRequest, w io.Writer) error {
	a.completions = append(a.completions, req)
	if a.completeErr != nil {
		return a.completeErr
	}
	for _, c := range a.chunks {
		io.WriteString(w, c)
	}
	return nil
}

func (a *testAPI) CompleteWS(ctx context.Context, req models.CompletionRequest, w io.Writer) error {
	a.viaWS = true
	return a.Complete(ctx, req, w)
}

func newWorkflow(api *testAPI, ex *testExtractor, cfg WorkflowConfig) (*Workflow, *[]Status) {
	var seen []Status
	cfg.OnStatus = func(s Status) { seen = append(seen, s) }
	return NewWorkflow(api, ex, cfg), &seen
}

func TestWorkflow_Prepare(t *testing.T) {
	api := &testAPI{}
	ex := &testExtractor{}
	wf, seen := newWorkflow(api, ex, WorkflowConfig{})

	id, transcript, err := wf.Prepare(context.Background(), "/videos/talk.mp4", "kafka")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if id != testVideoID || transcript != "hello world" {
		t.Errorf("Prepare = %q, %q", id, transcript)
	}
	if wf.Status() != StatusSuccess || wf.VideoID() != testVideoID {
		t.Errorf("status = %v, video = %q", wf.Status(), wf.VideoID())
	}
	if ex.format != media.FormatMP3 {
		t.Errorf("format = %q, want mp3", ex.format)
	}
	if len(api.uploads) != 1 || filepath.Base(api.uploads[0]) != "talk.mp3" {
		t.Errorf("uploads = %v", api.uploads)
	}
	if len(api.hints) != 1 || api.hints[0] != "kafka" {
		t.Errorf("hints = %v", api.hints)
	}

	want := []Status{StatusConverting, StatusUploading, StatusGenerating, StatusSuccess}
	if fmt.Sprint(*seen) != fmt.Sprint(want) {
		t.Errorf("statuses = %v, want %v", *seen, want)
	}
}

func TestWorkflow_MediaEngineUnavailable(t *testing.T) {
	api := &testAPI{}
	ex := &testExtractor{unavailable: fmt.Errorf("%w: ffmpeg not found", models.ErrMediaEngineUnavailable)}
	wf, _ := newWorkflow(api, ex, WorkflowConfig{})

	_, _, err := wf.Prepare(context.Background(), "/videos/talk.mp4", "")
	if !errors.Is(err, models.ErrMediaEngineUnavailable) {
		t.Fatalf("err = %v, want ErrMediaEngineUnavailable", err)
	}
	if wf.Status() != StatusError {
		t.Errorf("status = %v, want error", wf.Status())
	}
	if ex.calls != 0 || len(api.uploads) != 0 {
		t.Errorf("extract calls = %d, uploads = %d", ex.calls, len(api.uploads))
	}
}

func TestWorkflow_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		api        *testAPI
		ex         *testExtractor
		wantErr    error
		wantUpload int
	}{
		{"extract", &testAPI{}, &testExtractor{err: fmt.Errorf("%w: corrupt", models.ErrInvalidAudio)}, models.ErrInvalidAudio, 0},
		{"upload", &testAPI{uploadErr: models.ErrUpstreamUnavailable}, &testExtractor{}, models.ErrUpstreamUnavailable, 1},
		{"transcribe", &testAPI{transcribeErr: models.ErrInvalidAudio}, &testExtractor{}, models.ErrInvalidAudio, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, seen := newWorkflow(tt.api, tt.ex, WorkflowConfig{})

			_, _, err := wf.Prepare(context.Background(), "/videos/talk.mp4", "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if wf.Status() != StatusError {
				t.Errorf("status = %v, want error", wf.Status())
			}
			if last := (*seen)[len(*seen)-1]; last != StatusError {
				t.Errorf("last notification = %v", last)
			}
			if len(tt.api.uploads) != tt.wantUpload {
				t.Errorf("uploads = %d, want %d", len(tt.api.uploads), tt.wantUpload)
			}

			// Error is terminal until Reset.
			if _, _, err := wf.Prepare(context.Background(), "/videos/talk.mp4", ""); err != ErrWorkflowFailed {
				t.Errorf("Prepare in error state err = %v", err)
			}
			wf.Reset()
			if wf.Status() != StatusWaiting || wf.VideoID() != "" {
				t.Errorf("after Reset status = %v, video = %q", wf.Status(), wf.VideoID())
			}
		})
	}
}

func TestWorkflow_Complete(t *testing.T) {
	api := &testAPI{chunks: []string{"Summarize:", " hello", " world"}}
	wf, _ := newWorkflow(api, &testExtractor{}, WorkflowConfig{})

	var out strings.Builder
	if err := wf.Complete(context.Background(), "Summarize: {transcription}", 0.5, &out); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Complete before Prepare err = %v", err)
	}

	if _, _, err := wf.Prepare(context.Background(), "/videos/talk.mp4", ""); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := wf.Complete(context.Background(), "Summarize: {transcription}", 0.5, &out); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.String() != "Summarize: hello world" {
		t.Errorf("output = %q", out.String())
	}
	if api.completions[0].VideoID != testVideoID || api.completions[0].Temperature != 0.5 {
		t.Errorf("request = %+v", api.completions[0])
	}
	if api.viaWS {
		t.Error("expected HTTP streaming")
	}
}

func TestWorkflow_CompleteInvalidTemperatureFailsRun(t *testing.T) {
	api := &testAPI{}
	wf, _ := newWorkflow(api, &testExtractor{}, WorkflowConfig{})
	wf.Prepare(context.Background(), "/videos/talk.mp4", "")

	err := wf.Complete(context.Background(), "p", 1.2, io.Discard)
	if !errors.Is(err, models.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
	if len(api.completions) != 0 {
		t.Errorf("completion sent despite invalid temperature")
	}
	if wf.Status() != StatusError {
		t.Errorf("status = %v, want error", wf.Status())
	}
	if err := wf.Complete(context.Background(), "p", 0.5, io.Discard); !errors.Is(err, ErrWorkflowFailed) {
		t.Errorf("err = %v, want ErrWorkflowFailed until Reset", err)
	}
}

func TestWorkflow_CompleteFailureIsTerminal(t *testing.T) {
	api := &testAPI{completeErr: models.ErrUpstreamUnavailable}
	wf, _ := newWorkflow(api, &testExtractor{}, WorkflowConfig{WebSocket: true})
	wf.Prepare(context.Background(), "/videos/talk.mp4", "")

	err := wf.Complete(context.Background(), "p", 0.5, io.Discard)
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !api.viaWS {
		t.Error("expected WebSocket streaming")
	}
	if wf.Status() != StatusError {
		t.Errorf("status = %v, want error", wf.Status())
	}
	if err := wf.Complete(context.Background(), "p", 0.5, io.Discard); err != ErrWorkflowFailed {
		t.Errorf("Complete in error state err = %v", err)
	}
}
