package mock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/stt"
)

func TestAdapter_Transcribe(t *testing.T) {
	a := New()

	text, err := a.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("audio")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != DefaultTranscript {
		t.Errorf("expected default transcript, got %q", text)
	}
}

func TestAdapter_Transcribe_Hint(t *testing.T) {
	a := New()

	text, _ := a.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("audio"), Hint: "go, kafka"})
	if !strings.HasSuffix(text, "Keywords: go, kafka.") {
		t.Errorf("expected hint echoed, got %q", text)
	}
}

func TestAdapter_Transcribe_EmptyAudio(t *testing.T) {
	a := New()

	_, err := a.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("")})
	if !errors.Is(err, models.ErrInvalidAudio) {
		t.Errorf("expected ErrInvalidAudio, got %v", err)
	}
}

func TestAdapter_Transcribe_ContextTimeout(t *testing.T) {
	a := &Adapter{Transcript: "x", Delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Transcribe(ctx, stt.Request{Audio: strings.NewReader("audio")})
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
