package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/llm"
)

func sseServer(t *testing.T, deltas []string, captured *goopenai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		// A role-only delta first, as the real API does.
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant"}}]}`+"\n\n")
		for _, d := range deltas {
			b, _ := json.Marshal(d)
			fmt.Fprintf(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%s}}]}`+"\n\n", b)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func newClient(url string) *goopenai.Client {
	cfg := goopenai.DefaultConfig("test-key")
	cfg.BaseURL = url + "/v1"
	return goopenai.NewClientWithConfig(cfg)
}

func TestAdapter_Stream(t *testing.T) {
	var captured goopenai.ChatCompletionRequest
	srv := sseServer(t, []string{"Hello", ", ", "world"}, &captured)
	defer srv.Close()

	a := New(newClient(srv.URL))
	stream, err := a.Stream(context.Background(), llm.Request{
		Model:       "gpt-3.5-turbo-16k",
		Prompt:      "Summarize: hello world",
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		sb.WriteString(chunk)
	}

	if sb.String() != "Hello, world" {
		t.Errorf("expected 'Hello, world', got %q", sb.String())
	}
	if captured.Model != "gpt-3.5-turbo-16k" {
		t.Errorf("expected model forwarded, got %q", captured.Model)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content != "Summarize: hello world" {
		t.Errorf("expected single user message with prompt, got %+v", captured.Messages)
	}
	if !captured.Stream {
		t.Error("expected stream=true")
	}
	if captured.Temperature < 0.69 || captured.Temperature > 0.71 {
		t.Errorf("expected temperature 0.7, got %v", captured.Temperature)
	}
}

func TestAdapter_Stream_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	a := New(newClient(srv.URL))
	_, err := a.Stream(context.Background(), llm.Request{Model: "m", Prompt: "p", Temperature: 0.5})
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestTemperature_ZeroIsSent(t *testing.T) {
	if temperature(0) == 0 {
		t.Error("expected zero temperature to be mapped to a non-zero value")
	}
	if temperature(0.5) != 0.5 {
		t.Errorf("expected 0.5, got %v", temperature(0.5))
	}
}
