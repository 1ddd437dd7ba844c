package mock

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/llm"
)

func drain(t *testing.T, s llm.Stream) string {
	t.Helper()
	var sb strings.Builder
	for {
		c, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		sb.WriteString(c)
	}
}

func TestAdapter_EchoesPrompt(t *testing.T) {
	a := New()
	s, _ := a.Stream(context.Background(), llm.Request{Prompt: "Summarize: hello world"})

	if got := drain(t, s); got != "Summarize: hello world" {
		t.Errorf("expected prompt echoed, got %q", got)
	}
	if reqs := a.Requests(); len(reqs) != 1 || reqs[0].Prompt != "Summarize: hello world" {
		t.Errorf("unexpected recorded requests %+v", reqs)
	}
}

func TestAdapter_CannedChunks(t *testing.T) {
	a := &Adapter{Chunks: []string{"a", "b"}}
	s, _ := a.Stream(context.Background(), llm.Request{Prompt: "ignored"})

	if got := drain(t, s); got != "ab" {
		t.Errorf("expected 'ab', got %q", got)
	}
}

func TestAdapter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{Chunks: []string{"a", "b"}}
	s, _ := a.Stream(ctx, llm.Request{})

	cancel()
	if _, err := s.Recv(); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable after cancel, got %v", err)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one two", 2},
		{"one two\nthree", 3},
	}
	for _, tt := range tests {
		got := splitWords(tt.in)
		if len(got) != tt.want {
			t.Errorf("splitWords(%q) = %d chunks, want %d", tt.in, len(got), tt.want)
		}
		if strings.Join(got, "") != tt.in {
			t.Errorf("splitWords(%q) does not concatenate back", tt.in)
		}
	}
}
