package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"IntelBrief/internal/config"
	"IntelBrief/internal/ports"
)

func TestOllamaGenerate(t *testing.T) {
	t.Parallel()

	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"model":"llama3.1","response":"hello","done":true}`))
	}))
	defer srv.Close()

	text, err := NewOllamaClient(srv.URL+"/").Generate(context.Background(), ports.GenerateRequest{
		Model: "llama3.1", Prompt: "hi", Temperature: 0.7, MaxTokens: 2000,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "hello" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Stream || got.Options.NumPredict != 2000 || got.Options.Temperature != 0.7 || got.Model != "llama3.1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewOllamaClient(srv.URL).Generate(context.Background(), ports.GenerateRequest{Model: "nope"}); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"brief"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.OpenAIConfig{Endpoint: srv.URL, APIKey: "secret"})
	text, err := client.Generate(context.Background(), ports.GenerateRequest{Model: "gpt-4o-mini", Prompt: "p", MaxTokens: 3000})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "brief" {
		t.Fatalf("unexpected text %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "p" || got.MaxTokens != 3000 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestOpenAIMisconfigured(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAIClient(config.OpenAIConfig{}).Generate(context.Background(), ports.GenerateRequest{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
