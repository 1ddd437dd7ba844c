// Package openai builds the go-openai client shared by the Whisper and chat adapters.
package openai

import (
	goopenai "github.com/sashabaranov/go-openai"

	"upload-ai-service/internal/config"
)

// NewClient builds a client for cfg, honouring a custom base URL.
func NewClient(cfg config.OpenAIConfig) *goopenai.Client {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return goopenai.NewClientWithConfig(clientConfig)
}
