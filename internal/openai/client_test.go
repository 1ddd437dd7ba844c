package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"upload-ai-service/internal/config"
)

func TestNewClient_UsesBaseURLAndKey(t *testing.T) {
	var path, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","data":[]}`)
	}))
	defer srv.Close()

	c := NewClient(config.OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	if _, err := c.ListModels(context.Background()); err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if path != "/v1/models" {
		t.Errorf("path = %q, want /v1/models", path)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}
}
