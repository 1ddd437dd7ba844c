package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SERVICE_PRINCIPAL", "ENV", "HTTP_PORT", "GRPC_HEALTH_PORT",
		"STORE_DRIVER", "POSTGRES_URL", "UPLOAD_DIR", "MAX_UPLOAD_BYTES",
		"STT_PROVIDER", "STT_MODEL", "STT_LANGUAGE_CODE", "STT_AUDIO_ENCODING",
		"STT_SAMPLE_RATE_HZ", "STT_TIMEOUT",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_TIMEOUT",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_TRANSCRIPT", "KAFKA_TOPIC_COMPLETION", "KAFKA_PRINCIPAL",
		"PROMPTS_FILE", "LOG_LEVEL", "LOG_FORMAT", "METRICS_PORT",
	}
	for _, v := range envVars {
		// t.Setenv restores the previous value when the test ends.
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-upload-ai" {
		t.Errorf("expected default principal 'svc-upload-ai', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "3333" {
		t.Errorf("expected default HTTP port '3333', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.GRPCHealthPort != "50051" {
		t.Errorf("expected default gRPC health port '50051', got %s", cfg.Service.GRPCHealthPort)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected default store driver 'memory', got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.MaxUploadBytes != 25*1024*1024 {
		t.Errorf("expected default max upload 25MiB, got %d", cfg.Storage.MaxUploadBytes)
	}
	if cfg.Storage.UploadDir != filepath.Join(os.TempDir(), "upload-ai") {
		t.Errorf("unexpected default upload dir %s", cfg.Storage.UploadDir)
	}
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.Model != "whisper-1" {
		t.Errorf("expected default STT model 'whisper-1', got %s", cfg.STT.Model)
	}
	if cfg.STT.Timeout != 2*time.Minute {
		t.Errorf("expected default STT timeout 2m, got %v", cfg.STT.Timeout)
	}
	if cfg.LLM.Model != "gpt-3.5-turbo-16k" {
		t.Errorf("expected default LLM model 'gpt-3.5-turbo-16k', got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 2*time.Minute {
		t.Errorf("expected default LLM timeout 2m, got %v", cfg.LLM.Timeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no default brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://u:p@db:5432/uploadai")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_LANGUAGE_CODE", "pt-BR")
	t.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	t.Setenv("STT_TIMEOUT", "30s")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("expected driver 'postgres', got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.PostgresURL != "postgres://u:p@db:5432/uploadai" {
		t.Errorf("unexpected postgres url %s", cfg.Storage.PostgresURL)
	}
	if cfg.Storage.MaxUploadBytes != 1048576 {
		t.Errorf("expected max upload 1048576, got %d", cfg.Storage.MaxUploadBytes)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "pt-BR" {
		t.Errorf("expected language 'pt-BR', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.Timeout != 30*time.Second {
		t.Errorf("expected STT timeout 30s, got %v", cfg.STT.Timeout)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected LLM provider 'openai', got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("expected LLM timeout 45s, got %v", cfg.LLM.Timeout)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "kafka-1:9092" || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	t.Setenv("STT_TIMEOUT", "soon")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg := Load()

	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.Timeout != 2*time.Minute {
		t.Errorf("expected default STT timeout on invalid input, got %v", cfg.STT.Timeout)
	}
	if cfg.Storage.MaxUploadBytes != 25*1024*1024 {
		t.Errorf("expected default max upload on invalid input, got %d", cfg.Storage.MaxUploadBytes)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled=false on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)

			got := envOrDefaultBool("TEST_BOOL_VAR", tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("UPLOADAI_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UPLOADAI_DOTENV_TEST", "")
	os.Unsetenv("UPLOADAI_DOTENV_TEST")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("UPLOADAI_DOTENV_TEST"); got != "from-file" {
		t.Errorf("expected value from .env file, got %q", got)
	}
}
