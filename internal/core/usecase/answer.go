package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/core/ports"
)

const (
	defaultTopK = 5

	// maxAnswerK bounds chunks sent to the model; maxSearchLimit bounds
	// retrieval-only result pages.
	maxAnswerK     = 10
	maxSearchLimit = 20

	// noModelSentinel is reported when the generator was never invoked.
	noModelSentinel = "none"
)

type AnswerUseCase struct {
	embedder  ports.Embedder
	store     ports.ChunkStore
	sparse    ports.SparseSearcher
	generator ports.AnswerGenerator
	logger    *slog.Logger

	rrfK      int
	maxTokens int
}

func NewAnswerUseCase(
	embedder ports.Embedder,
	store ports.ChunkStore,
	sparse ports.SparseSearcher,
	generator ports.AnswerGenerator,
	logger *slog.Logger,
	rrfK int,
	maxTokens int,
) *AnswerUseCase {
	if rrfK <= 0 {
		rrfK = 60
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnswerUseCase{
		embedder:  embedder,
		store:     store,
		sparse:    sparse,
		generator: generator,
		logger:    logger,
		rrfK:      rrfK,
		maxTokens: maxTokens,
	}
}

// Answer runs the governed synthesis pipeline: filter, dual retrieval,
// RRF fusion, grounded prompt, deterministic generation and citation
// resolution. Generation failures degrade into an error-prefixed answer
// inside a success envelope; exactly one audit record is emitted per
// completed request, degraded ones included.
func (uc *AnswerUseCase) Answer(ctx context.Context, query domain.QueryContext) (*domain.AnswerResult, error) {
	query, err := normalizeQuery(query, maxAnswerK)
	if err != nil {
		return nil, err
	}
	filter := AccessFilter(query.AccessLevel)

	retrievalStart := time.Now()
	frozen, err := uc.retrieve(ctx, query, filter)
	if err != nil {
		return nil, err
	}
	retrievalLatency := msSince(retrievalStart)

	if len(frozen) == 0 {
		result := &domain.AnswerResult{
			RequestID: query.RequestID,
			Answer:    InsufficientContextSentinel + " No relevant documents were retrieved.",
			Citations: []domain.Citation{},
			Metrics: domain.AnswerMetrics{
				RetrievalLatencyMS:  retrievalLatency,
				GenerationLatencyMS: 0,
				ModelName:           noModelSentinel,
				ChunksUsed:          0,
			},
		}
		uc.audit(query, filter, result, nil)
		return result, nil
	}

	prompt, labels := buildPrompt(query.Text, frozen)

	generationStart := time.Now()
	rawAnswer, genErr := uc.generator.Generate(ctx, prompt, uc.maxTokens)
	generationLatency := msSince(generationStart)

	var answer string
	var citations []domain.Citation
	if genErr != nil {
		// Degrade, stay auditable: the transport failure becomes a
		// readable answer, never a 5xx.
		uc.logger.Error("generation_failed",
			"request_id", query.RequestID,
			"model", uc.generator.ModelName(),
			"error", genErr,
		)
		answer = "ERROR: Generation failed - " + genErr.Error()
		citations = []domain.Citation{}
	} else {
		answer = strings.TrimSpace(rawAnswer)
		citations = extractCitations(answer, labels, uc.logger)
	}

	result := &domain.AnswerResult{
		RequestID: query.RequestID,
		Answer:    answer,
		Citations: citations,
		Metrics: domain.AnswerMetrics{
			RetrievalLatencyMS:  retrievalLatency,
			GenerationLatencyMS: generationLatency,
			ModelName:           uc.generator.ModelName(),
			ChunksUsed:          len(frozen),
			AvgRetrievalScore:   avgScore(frozen),
		},
	}
	uc.audit(query, filter, result, genErr)
	return result, nil
}

// retrieve runs the dense and sparse legs concurrently. Both are read-only
// and fusion depends only on each list's internal rank order, so timing
// cannot change the fused result.
func (uc *AnswerUseCase) retrieve(
	ctx context.Context,
	query domain.QueryContext,
	filter domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	var (
		wg        sync.WaitGroup
		dense     []domain.ChunkRecord
		sparse    []domain.ChunkRecord
		denseErr  error
		sparseErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		queryVector, err := uc.embedder.EmbedQuery(ctx, query.Text)
		if err != nil {
			denseErr = domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
			return
		}
		dense, err = uc.store.Search(ctx, queryVector, query.K, filter)
		if err != nil {
			denseErr = domain.WrapError(domain.ErrRetrievalUnavailable, "dense search", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		sparse, err = uc.sparse.SearchLexical(ctx, query.Text, query.K, filter)
		if err != nil {
			sparseErr = domain.WrapError(domain.ErrRetrievalUnavailable, "sparse search", err)
		}
	}()
	wg.Wait()

	if denseErr != nil {
		return nil, denseErr
	}
	if sparseErr != nil {
		return nil, sparseErr
	}

	return fuseRRF(dense, sparse, uc.rrfK, query.K), nil
}

func (uc *AnswerUseCase) audit(
	query domain.QueryContext,
	filter domain.SearchFilter,
	result *domain.AnswerResult,
	genErr error,
) {
	citedIDs := make([]string, 0, len(result.Citations))
	for _, c := range result.Citations {
		citedIDs = append(citedIDs, c.ChunkID)
	}

	uc.logger.Info("audit",
		"request_id", query.RequestID,
		"endpoint", "answer",
		"retrieval_ms", result.Metrics.RetrievalLatencyMS,
		"generation_ms", result.Metrics.GenerationLatencyMS,
		"filter", string(filter.AccessLevel),
		"access_level", string(query.AccessLevel),
		"model", result.Metrics.ModelName,
		"chunks", result.Metrics.ChunksUsed,
		"citations", len(result.Citations),
		"cited_chunk_ids", citedIDs,
		"degraded", genErr != nil,
	)
}

func normalizeQuery(query domain.QueryContext, maxK int) (domain.QueryContext, error) {
	query.Text = strings.TrimSpace(query.Text)
	if len(query.Text) < 3 {
		return query, domain.WrapError(domain.ErrInvalidInput, "validate query",
			errors.New("text must be at least 3 characters"))
	}
	if _, err := domain.ParseAccessLevel(string(query.AccessLevel)); err != nil {
		return query, domain.WrapError(domain.ErrInvalidInput, "validate query", err)
	}
	if query.K == 0 {
		query.K = defaultTopK
	}
	if query.K < 0 || query.K > maxK {
		return query, domain.WrapError(domain.ErrInvalidInput, "validate query",
			fmt.Errorf("k must be between 1 and %d", maxK))
	}
	return query, nil
}

func avgScore(chunks []domain.ScoredChunk) *float64 {
	if len(chunks) == 0 {
		return nil
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	avg := sum / float64(len(chunks))
	return &avg
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
