package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

func TestSearchReturnsFusedScoredResults(t *testing.T) {
	store := &storeFake{ranked: []domain.ChunkRecord{publicChunk("A"), publicChunk("B")}}
	sparse := &sparseFake{ranked: []domain.ChunkRecord{publicChunk("B")}}
	uc := NewSearchUseCase(&embedderFake{}, store, sparse, discardLogger(), 60)

	result, err := uc.Search(context.Background(), domain.QueryContext{
		Text:        "policy question",
		AccessLevel: domain.AccessPublic,
		K:           5,
		RequestID:   "req-s1",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	// B appears in both lists, so it outranks A.
	if result.Results[0].ChunkID != "B" {
		t.Fatalf("expected B first, got %s", result.Results[0].ChunkID)
	}
	if result.Results[0].Score <= result.Results[1].Score {
		t.Fatalf("results must be sorted by descending fused score")
	}
}

func TestSearchAllowsWiderLimitThanAnswer(t *testing.T) {
	uc := NewSearchUseCase(&embedderFake{}, &storeFake{}, &sparseFake{}, discardLogger(), 60)

	if _, err := uc.Search(context.Background(), domain.QueryContext{
		Text:        "policy question",
		AccessLevel: domain.AccessPublic,
		K:           20,
	}); err != nil {
		t.Fatalf("limit 20 must be accepted for retrieval-only search, got %v", err)
	}
	if _, err := uc.Search(context.Background(), domain.QueryContext{
		Text:        "policy question",
		AccessLevel: domain.AccessPublic,
		K:           21,
	}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("limit 21 must be rejected, got %v", err)
	}
}
