// Package remote implements answer generation against an OpenAI-compatible
// completions endpoint (vLLM, TGI and similar servers).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/infrastructure/resilience"
)

type Generator struct {
	endpoint   string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(endpoint, model string) *Generator {
	return NewWithOptions(endpoint, model, Options{})
}

func NewWithOptions(endpoint, model string, options Options) *Generator {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Generator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := map[string]any{
		"model":       g.model,
		"prompt":      prompt,
		"temperature": 0,
		"stop":        []string{"</s>", "<|im_end|>"},
	}
	if maxTokens > 0 {
		reqBody["max_tokens"] = maxTokens
	}

	var raw json.RawMessage
	call := func(ctx context.Context) error {
		var err error
		raw, err = g.postCompletions(ctx, reqBody)
		return err
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "remote.generate", call, classifyRemoteError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(err)
	}

	text, err := extractCompletionText(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (g *Generator) ModelName() string {
	return g.model
}

func (g *Generator) postCompletions(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &statusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	return raw, nil
}

// extractCompletionText tolerates the response shapes of the common
// OpenAI-compatible servers: choices[].text, generated_text, and a bare
// response field.
func extractCompletionText(raw json.RawMessage) (string, error) {
	var resp struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
		GeneratedText string `json:"generated_text"`
		Response      string `json:"response"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Text, nil
	}
	if resp.GeneratedText != "" {
		return resp.GeneratedText, nil
	}
	if resp.Response != "" {
		return resp.Response, nil
	}
	return "", fmt.Errorf("completion response has no text")
}

type statusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *statusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("remote completion status: %s", e.Status)
	}
	return fmt.Sprintf("remote completion status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func classifyRemoteError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{RecordFailure: false}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{
			RecordFailure: isTemporaryHTTPStatus(statusErr.StatusCode),
		}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "remote generate", err)
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) && isTemporaryHTTPStatus(statusErr.StatusCode) {
		return domain.WrapError(domain.ErrTemporary, "remote generate", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, "remote generate", err)
	}
	return err
}

func isTemporaryHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
