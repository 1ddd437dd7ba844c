// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete service configuration.
type Config struct {
	Service       ServiceConfig
	Storage       StorageConfig
	STT           STTConfig
	LLM           LLMConfig
	Kafka         KafkaConfig
	Prompts       PromptsConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal      string
	Env            string
	HTTPPort       string
	GRPCHealthPort string
}

type StorageConfig struct {
	Driver         string // memory, postgres
	PostgresURL    string
	UploadDir      string
	MaxUploadBytes int64
}

type STTConfig struct {
	Provider      string // openai, google, mock
	Model         string
	LanguageCode  string
	AudioEncoding string
	SampleRateHz  int
	Timeout       time.Duration
}

type LLMConfig struct {
	Provider string // openai, mock
	Model    string
	Timeout  time.Duration
}

type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicCompletion string
	Principal       string
}

type PromptsConfig struct {
	File string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// OpenAIConfig holds credentials shared by the openai STT and LLM providers.
// It is loaded separately so secrets are not carried in Config.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-upload-ai")

	return &Config{
		Service: ServiceConfig{
			Principal:      principal,
			Env:            envOrDefault("ENV", "prod"),
			HTTPPort:       envOrDefault("HTTP_PORT", "3333"),
			GRPCHealthPort: envOrDefault("GRPC_HEALTH_PORT", "50051"),
		},
		Storage: StorageConfig{
			Driver:         envOrDefault("STORE_DRIVER", "memory"),
			PostgresURL:    os.Getenv("POSTGRES_URL"),
			UploadDir:      envOrDefault("UPLOAD_DIR", filepath.Join(os.TempDir(), "upload-ai")),
			MaxUploadBytes: envOrDefaultInt64("MAX_UPLOAD_BYTES", 25*1024*1024),
		},
		STT: STTConfig{
			Provider:      envOrDefault("STT_PROVIDER", "mock"),
			Model:         envOrDefault("STT_MODEL", "whisper-1"),
			LanguageCode:  os.Getenv("STT_LANGUAGE_CODE"),
			AudioEncoding: envOrDefault("STT_AUDIO_ENCODING", "FLAC"),
			SampleRateHz:  envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			Timeout:       envOrDefaultDuration("STT_TIMEOUT", 2*time.Minute),
		},
		LLM: LLMConfig{
			Provider: envOrDefault("LLM_PROVIDER", "mock"),
			Model:    envOrDefault("LLM_MODEL", "gpt-3.5-turbo-16k"),
			Timeout:  envOrDefaultDuration("LLM_TIMEOUT", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         envList("KAFKA_BROKERS"),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "uploadai.video.transcribed"),
			TopicCompletion: envOrDefault("KAFKA_TOPIC_COMPLETION", "uploadai.completion.finished"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Prompts: PromptsConfig{
			File: os.Getenv("PROMPTS_FILE"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

// LoadOpenAI reads the OpenAI credentials.
func LoadOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
