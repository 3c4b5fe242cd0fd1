// Package llm selects the answer generation backend. The choice is made
// once at construction; the request pipeline never switches backends.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/governed-rag/internal/core/ports"
	"github.com/kirillkom/governed-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/governed-rag/internal/infrastructure/llm/remote"
	"github.com/kirillkom/governed-rag/internal/infrastructure/resilience"
)

type Config struct {
	Backend            string
	RemoteEndpoint     string
	RemoteModel        string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func NewGenerator(cfg Config, ollamaClient *ollama.Client) (ports.AnswerGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "ollama":
		if ollamaClient == nil {
			return nil, fmt.Errorf("llm: ollama backend requires a client")
		}
		return ollama.NewGenerator(ollamaClient), nil
	case "remote":
		if strings.TrimSpace(cfg.RemoteEndpoint) == "" {
			return nil, fmt.Errorf("llm: remote backend requires an endpoint")
		}
		return remote.NewWithOptions(cfg.RemoteEndpoint, cfg.RemoteModel, remote.Options{
			Timeout:            cfg.Timeout,
			ResilienceExecutor: cfg.ResilienceExecutor,
		}), nil
	default:
		return nil, fmt.Errorf("llm: unknown backend %q", cfg.Backend)
	}
}
