package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateParsesChoices(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"text":"answer [C1]"}]}`))
	}))
	defer server.Close()

	gen := New(server.URL, "mistral-7b")
	got, err := gen.Generate(context.Background(), "the prompt", 256)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "answer [C1]" {
		t.Fatalf("unexpected answer: %q", got)
	}

	if captured["model"] != "mistral-7b" {
		t.Fatalf("expected model mistral-7b, got %v", captured["model"])
	}
	if got, _ := captured["temperature"].(float64); got != 0 {
		t.Fatalf("expected temperature 0, got %v", captured["temperature"])
	}
	if got, _ := captured["max_tokens"].(float64); got != 256 {
		t.Fatalf("expected max_tokens 256, got %v", captured["max_tokens"])
	}
}

func TestGenerateFallsBackToGeneratedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generated_text":"fallback answer"}`))
	}))
	defer server.Close()

	gen := New(server.URL, "m")
	got, err := gen.Generate(context.Background(), "p", 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "fallback answer" {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestGenerateErrorsOnEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	gen := New(server.URL, "m")
	_, err := gen.Generate(context.Background(), "p", 0)
	if err == nil || !strings.Contains(err.Error(), "no text") {
		t.Fatalf("expected no-text error, got %v", err)
	}
}

func TestGenerateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := New(server.URL, "m")
	_, err := gen.Generate(context.Background(), "p", 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "backend overloaded") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestModelName(t *testing.T) {
	gen := New("http://localhost:8000", "mistral-7b")
	if got := gen.ModelName(); got != "mistral-7b" {
		t.Fatalf("ModelName() = %q", got)
	}
}
