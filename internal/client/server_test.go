package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"upload-ai-service/internal/events"
	httpapi "upload-ai-service/internal/http"
	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/metrics"
	"upload-ai-service/internal/prompts"
	"upload-ai-service/internal/service/completion"
	llmmock "upload-ai-service/internal/service/llm/mock"
	"upload-ai-service/internal/store"
)

// newRealServer runs the service router over a transcribed video and returns
// a client for it along with the video id.
func newRealServer(t *testing.T, llm *llmmock.Adapter) (*Client, string) {
	t.Helper()
	ctx := context.Background()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	st := store.NewMemory()
	v, err := st.CreateVideo(ctx, "talk.mp3", "/tmp/talk.mp3")
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if err := st.SetTranscript(ctx, v.ID, "hello world"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}
	catalog, err := prompts.Load("")
	if err != nil {
		t.Fatalf("prompts.Load: %v", err)
	}
	pub := events.New(&events.Config{Enabled: false, Metrics: m})

	api, err := httpapi.NewAPI(httpapi.Config{
		Store:     st,
		Prompts:   catalog,
		Completer: completion.New(st, llm, pub, "gpt-test", completion.WithMetrics(m)),
		UploadDir: t.TempDir(),
		Metrics:   m,
	})
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewRouter(api))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, v.ID
}

func TestComplete_AgainstServer(t *testing.T) {
	c, id := newRealServer(t, llmmock.New())

	var out strings.Builder
	err := c.Complete(context.Background(), models.CompletionRequest{
		VideoID:     id,
		PromptText:  "Summarize: {transcription}",
		Temperature: 0.5,
	}, &out)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.String() != "Summarize: hello world" {
		t.Errorf("output = %q", out.String())
	}
}

func TestComplete_AgainstServer_MidStreamFailure(t *testing.T) {
	llm := &llmmock.Adapter{
		Chunks: []string{"partial "},
		Err:    errors.New("upstream connection reset"),
	}
	c, id := newRealServer(t, llm)

	var out strings.Builder
	err := c.Complete(context.Background(), models.CompletionRequest{
		VideoID:     id,
		PromptText:  "Summarize: {transcription}",
		Temperature: 0.5,
	}, &out)
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if out.String() != "partial " {
		t.Errorf("output = %q", out.String())
	}
}

func TestWorkflow_CompleteMidStreamFailureEndsInError(t *testing.T) {
	llm := &llmmock.Adapter{
		Chunks: []string{"partial "},
		Err:    errors.New("upstream connection reset"),
	}
	c, id := newRealServer(t, llm)

	w := NewWorkflow(c, &testExtractor{}, WorkflowConfig{})
	w.videoID = id
	for _, s := range []Status{StatusConverting, StatusUploading, StatusGenerating, StatusSuccess} {
		if err := w.lifecycle.Advance(s); err != nil {
			t.Fatalf("Advance(%s): %v", s, err)
		}
	}

	err := w.Complete(context.Background(), "Summarize: {transcription}", 0.5, &strings.Builder{})
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if w.Status() != StatusError {
		t.Errorf("status = %s, want %s", w.Status(), StatusError)
	}
}
