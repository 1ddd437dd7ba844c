// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode  string
	SampleRateHz  int
	AudioEncoding string
}

// DefaultConfig returns settings matching the client's flac extraction.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "FLAC",
	}
}

// recognizer is the subset of *speech.Client used by the adapter.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Adapter implements stt.Adapter using synchronous recognition.
// Synchronous recognition is limited by the provider to short audio.
type Adapter struct {
	client recognizer
	cfg    Config
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return newWithClient(c, cfg), nil
}

func newWithClient(c recognizer, cfg Config) *Adapter {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultConfig().LanguageCode
	}
	return &Adapter{client: c, cfg: cfg}
}

func (a *Adapter) Name() string { return "google" }

// Transcribe reads the whole payload and runs a single recognition request.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	audio, err := io.ReadAll(req.Audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty payload", models.ErrInvalidAudio)
	}

	resp, err := a.client.Recognize(ctx, a.buildRequest(audio, req.Hint))
	if err != nil {
		return "", classify(err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no speech recognized", models.ErrInvalidAudio)
	}
	return strings.Join(parts, " "), nil
}

func (a *Adapter) buildRequest(audio []byte, hint string) *speechpb.RecognizeRequest {
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(a.cfg.AudioEncoding),
		SampleRateHertz:            int32(a.cfg.SampleRateHz),
		LanguageCode:               a.cfg.LanguageCode,
		EnableAutomaticPunctuation: true,
	}
	if strings.TrimSpace(hint) != "" {
		// The hint goes through as one phrase, unaltered.
		cfg.SpeechContexts = []*speechpb.SpeechContext{{Phrases: []string{hint}}}
	}
	return &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// parseAudioEncoding maps an encoding name to the proto enum, falling back to LINEAR16.
func parseAudioEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[name]; ok && v != 0 {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.OutOfRange:
		return fmt.Errorf("%w: %w", models.ErrInvalidAudio, err)
	default:
		return fmt.Errorf("%w: google recognize: %w", models.ErrUpstreamUnavailable, err)
	}
}
