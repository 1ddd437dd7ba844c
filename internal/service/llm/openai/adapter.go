// Package openai provides a chat-completion streaming adapter.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/service/llm"
)

// Adapter implements llm.Adapter with the OpenAI chat completion API.
type Adapter struct {
	client *openai.Client
}

// New creates an adapter around an existing client.
func New(client *openai.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Name() string { return "openai" }

// Stream sends the prompt as a single user message with Stream enabled.
func (a *Adapter) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		Temperature: temperature(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai completion: %w", models.ErrUpstreamUnavailable, err)
	}
	return &chatStream{stream: stream}, nil
}

// temperature works around omitempty on the request field: a literal zero
// would be dropped and the provider default (1) applied instead.
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("%w: openai stream: %w", models.ErrUpstreamUnavailable, err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			// Role-only and finish-reason deltas carry no text.
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}
