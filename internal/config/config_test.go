package config

import "testing"

func TestLoadRetrievalAndGenerationDefaults(t *testing.T) {
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_FUSION_RRF_K", "")
	t.Setenv("LLM_BACKEND", "")
	t.Setenv("LLM_MAX_TOKENS", "")

	cfg := Load()
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.RAGFusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.LLMBackend != "ollama" {
		t.Fatalf("expected default backend ollama, got %q", cfg.LLMBackend)
	}
	if cfg.LLMMaxTokens != 512 {
		t.Fatalf("expected default max tokens 512, got %d", cfg.LLMMaxTokens)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_FUSION_RRF_K", "75")
	t.Setenv("LLM_BACKEND", "remote")
	t.Setenv("LLM_ENDPOINT", "http://vllm:8000")
	t.Setenv("LLM_MODEL_NAME", "mistral-7b")
	t.Setenv("API_RATE_LIMIT_RPS", "5")

	cfg := Load()
	if cfg.RAGFusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.LLMBackend != "remote" {
		t.Fatalf("expected backend remote, got %q", cfg.LLMBackend)
	}
	if cfg.LLMEndpoint != "http://vllm:8000" {
		t.Fatalf("expected endpoint override, got %q", cfg.LLMEndpoint)
	}
	if cfg.APIRateLimitRPS != 5 {
		t.Fatalf("expected rate limit 5, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadIgnoresMalformedIntegers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg := Load()
	if cfg.ChunkSize != 2000 {
		t.Fatalf("expected fallback chunk size 2000, got %d", cfg.ChunkSize)
	}
}
