// Package app assembles the service from its configuration and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	grpcapi "upload-ai-service/internal/api/grpc"
	"upload-ai-service/internal/config"
	"upload-ai-service/internal/events"
	httpapi "upload-ai-service/internal/http"
	"upload-ai-service/internal/observability"
	"upload-ai-service/internal/observability/logging"
	"upload-ai-service/internal/observability/metrics"
	openaiclient "upload-ai-service/internal/openai"
	"upload-ai-service/internal/prompts"
	"upload-ai-service/internal/service/completion"
	"upload-ai-service/internal/service/llm"
	llmmock "upload-ai-service/internal/service/llm/mock"
	llmopenai "upload-ai-service/internal/service/llm/openai"
	"upload-ai-service/internal/service/stt"
	sttgoogle "upload-ai-service/internal/service/stt/google"
	sttmock "upload-ai-service/internal/service/stt/mock"
	sttopenai "upload-ai-service/internal/service/stt/openai"
	"upload-ai-service/internal/service/transcription"
	"upload-ai-service/internal/store"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	store      store.Store
	publisher  *events.Publisher
	sttAdapter stt.Adapter
	httpServer *http.Server
	obsServer  *observability.Server
	grpcHealth *grpcapi.HealthServer
}

// New constructs the Application and all of its components.
// Nothing listens for requests until Start.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	if err := a.build(ctx); err != nil {
		a.closeResources()
		return nil, err
	}

	appLogger.Info().
		Str("store", cfg.Storage.Driver).
		Str("stt", a.sttAdapter.Name()).
		Str("llm", cfg.LLM.Provider).
		Msg("Upload AI service application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.Cfg.Observability.LogLevel
	logCfg.Format = a.Cfg.Observability.LogFormat
	if a.Cfg.Service.Env == "dev" {
		logCfg.Format = "console"
	}
	logging.Init(logCfg)

	a.Logger = logging.WithComponent("application")
	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Env).
		Msg("Logger setup completed")
}

func (a *Application) build(ctx context.Context) error {
	cfg := a.Cfg
	m := metrics.DefaultMetrics

	st, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	a.store = st

	catalog, err := prompts.Load(cfg.Prompts.File)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	a.publisher = events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicCompletion: cfg.Kafka.TopicCompletion,
		Principal:       cfg.Kafka.Principal,
		Metrics:         m,
	})

	openaiCfg := config.LoadOpenAI()

	a.sttAdapter, err = newSTT(ctx, cfg.STT, openaiCfg)
	if err != nil {
		return err
	}
	llmAdapter, err := newLLM(cfg.LLM, openaiCfg)
	if err != nil {
		return err
	}

	api, err := httpapi.NewAPI(httpapi.Config{
		Store:   a.store,
		Prompts: catalog,
		Transcriber: transcription.New(a.store, a.sttAdapter, a.publisher,
			transcription.WithTimeout(cfg.STT.Timeout),
			transcription.WithMetrics(m)),
		Completer: completion.New(a.store, llmAdapter, a.publisher, cfg.LLM.Model,
			completion.WithTimeout(cfg.LLM.Timeout),
			completion.WithMetrics(m)),
		UploadDir:      cfg.Storage.UploadDir,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Metrics:        m,
	})
	if err != nil {
		return err
	}

	a.httpServer = &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and streamed completions must not be cut short by the server.
		WriteTimeout: cfg.STT.Timeout + cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	a.obsServer = observability.NewServer(":"+cfg.Observability.MetricsPort, a.store.Ping)

	a.grpcHealth, err = grpcapi.NewHealthServer(":" + cfg.Service.GRPCHealthPort)
	if err != nil {
		return fmt.Errorf("grpc health listener: %w", err)
	}
	return nil
}

func newStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, errors.New("STORE_DRIVER=postgres requires POSTGRES_URL")
		}
		pg, err := store.NewPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newSTT(ctx context.Context, cfg config.STTConfig, oa config.OpenAIConfig) (stt.Adapter, error) {
	switch cfg.Provider {
	case "", "mock":
		return sttmock.New(), nil
	case "openai":
		if oa.APIKey == "" {
			return nil, errors.New("STT_PROVIDER=openai requires OPENAI_API_KEY")
		}
		return sttopenai.New(openaiclient.NewClient(oa), sttopenai.Config{
			Model:    cfg.Model,
			Language: cfg.LanguageCode,
		}), nil
	case "google":
		gcfg := sttgoogle.DefaultConfig()
		if cfg.LanguageCode != "" {
			gcfg.LanguageCode = cfg.LanguageCode
		}
		gcfg.SampleRateHz = cfg.SampleRateHz
		gcfg.AudioEncoding = cfg.AudioEncoding
		adapter, err := sttgoogle.New(ctx, gcfg)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}

func newLLM(cfg config.LLMConfig, oa config.OpenAIConfig) (llm.Adapter, error) {
	switch cfg.Provider {
	case "", "mock":
		return llmmock.New(), nil
	case "openai":
		if oa.APIKey == "" {
			return nil, errors.New("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
		return llmopenai.New(openaiclient.NewClient(oa)), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Start begins serving traffic on every listener.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	a.obsServer.Start()
	a.grpcHealth.Start()

	errCh := make(chan error, 1)
	go func() {
		startLogger.Info().Str("addr", a.httpServer.Addr).Msg("HTTP API listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Give the listener a moment to fail fast on a bad port.
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	a.grpcHealth.SetServing(true)
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Upload AI service started")
	return nil
}

// Shutdown drains in-flight requests and releases every resource.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("Upload AI service shutting down")

	if a.grpcHealth != nil {
		a.grpcHealth.SetServing(false)
	}
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			shutdownLogger.Warn().Err(err).Msg("HTTP server shutdown")
		}
	}
	if a.obsServer != nil {
		if err := a.obsServer.Shutdown(ctx); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Observability server shutdown")
		}
	}
	if a.grpcHealth != nil {
		a.grpcHealth.Stop()
	}
	a.closeResources()

	shutdownLogger.Info().Dur("uptime", time.Since(a.StartupTime)).Msg("Shutdown complete")
}

func (a *Application) closeResources() {
	if closer, ok := a.sttAdapter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Closing STT adapter")
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Closing publisher")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Closing store")
		}
	}
}
