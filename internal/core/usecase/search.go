package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/core/ports"
)

// SearchUseCase serves retrieval-only queries: the same governed hybrid
// retrieval as the answer pipeline, without generation.
type SearchUseCase struct {
	answerPipeline *AnswerUseCase
	logger         *slog.Logger
}

func NewSearchUseCase(
	embedder ports.Embedder,
	store ports.ChunkStore,
	sparse ports.SparseSearcher,
	logger *slog.Logger,
	rrfK int,
) *SearchUseCase {
	return &SearchUseCase{
		answerPipeline: NewAnswerUseCase(embedder, store, sparse, nil, logger, rrfK, 0),
		logger:         logger,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query domain.QueryContext) (*domain.SearchResult, error) {
	query, err := normalizeQuery(query, maxSearchLimit)
	if err != nil {
		return nil, err
	}
	filter := AccessFilter(query.AccessLevel)

	start := time.Now()
	frozen, err := uc.answerPipeline.retrieve(ctx, query, filter)
	if err != nil {
		return nil, err
	}
	latency := msSince(start)

	uc.logger.Info("audit",
		"request_id", query.RequestID,
		"endpoint", "search",
		"retrieval_ms", latency,
		"filter", string(filter.AccessLevel),
		"access_level", string(query.AccessLevel),
		"results", len(frozen),
	)

	return &domain.SearchResult{
		RequestID: query.RequestID,
		Results:   frozen,
		LatencyMS: latency,
	}, nil
}
