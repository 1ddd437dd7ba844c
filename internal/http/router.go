package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"upload-ai-service/internal/observability"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(api *API) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(api.metrics))

	r.Route("/prompts", func(r chi.Router) {
		r.Get("/", api.listPrompts)
		r.Get("/{promptId}", api.getPrompt)
	})

	r.Route("/videos", func(r chi.Router) {
		r.Post("/", api.uploadVideo)
		r.Get("/{videoId}", api.getVideo)
		r.Post("/{videoId}/transcription", api.transcribe)
	})

	r.Route("/ai", func(r chi.Router) {
		r.Post("/complete", api.complete)
		r.Get("/complete/ws", api.completeWS)
	})

	return r
}
