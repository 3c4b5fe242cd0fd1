// Package sparse holds the in-memory lexical index. It is hydrated once at
// process start from the chunk store and is immutable afterwards, which
// makes concurrent reads safe without locking. New ingestion only reaches
// the index after a restart.
package sparse

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/core/ports"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75

	// overfetchFactor widens the candidate window before the governance
	// filter is applied. A heuristic with no guarantee against arbitrary
	// filter selectivity: when fewer than k candidates survive, the
	// result stays short. There is deliberately no backfill.
	overfetchFactor = 3
)

type indexedChunk struct {
	record domain.ChunkRecord
	terms  map[string]int
	length int
}

type Index struct {
	chunks   []indexedChunk
	df       map[string]int
	avgLen   float64
	hydrated atomic.Bool
	logger   *slog.Logger
}

func NewIndex(logger *slog.Logger) *Index {
	return &Index{logger: logger}
}

// Hydrate builds the index from the full corpus. Call once before serving;
// the index never changes afterwards.
func (i *Index) Hydrate(ctx context.Context, store ports.ChunkStore) error {
	records, err := store.EnumerateChunks(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrRetrievalUnavailable, "enumerate chunks", err)
	}

	chunks := make([]indexedChunk, 0, len(records))
	df := make(map[string]int)
	totalLen := 0

	for _, record := range records {
		tokens := tokenize(record.Text)
		terms := make(map[string]int, len(tokens))
		for _, token := range tokens {
			terms[token]++
		}
		for term := range terms {
			df[term]++
		}
		totalLen += len(tokens)
		chunks = append(chunks, indexedChunk{record: record, terms: terms, length: len(tokens)})
	}

	avgLen := 0.0
	if len(chunks) > 0 {
		avgLen = float64(totalLen) / float64(len(chunks))
	}

	i.chunks = chunks
	i.df = df
	i.avgLen = avgLen
	i.hydrated.Store(true)

	i.logger.Info("sparse_index_hydrated", "chunks", len(chunks), "terms", len(df))
	return nil
}

func (i *Index) Ready() bool {
	return i.hydrated.Load()
}

// SearchLexical ranks the entire corpus with BM25, walks the top 3×k
// candidates in rank order applying the governance filter, and stops at k
// survivors. A short result means the filter thinned the window.
func (i *Index) SearchLexical(
	_ context.Context,
	queryText string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.ChunkRecord, error) {
	if !i.hydrated.Load() {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "sparse search",
			errors.New("index not hydrated"))
	}
	if limit <= 0 {
		return nil, nil
	}

	queryTerms := tokenize(queryText)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	ranking := make([]scored, 0, len(i.chunks))
	for idx := range i.chunks {
		s := i.score(queryTerms, &i.chunks[idx])
		if s > 0 {
			ranking = append(ranking, scored{idx: idx, score: s})
		}
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].score > ranking[b].score
	})

	window := limit * overfetchFactor
	if window > len(ranking) {
		window = len(ranking)
	}

	out := make([]domain.ChunkRecord, 0, limit)
	for _, candidate := range ranking[:window] {
		if len(out) >= limit {
			break
		}
		record := i.chunks[candidate.idx].record
		if filter.Matches(record) {
			out = append(out, record)
		}
	}
	return out, nil
}

// score is BM25 with standard saturation and length normalization.
func (i *Index) score(queryTerms []string, chunk *indexedChunk) float64 {
	total := 0.0
	n := float64(len(i.chunks))
	for _, term := range queryTerms {
		tf := float64(chunk.terms[term])
		if tf == 0 {
			continue
		}
		df := float64(i.df[term])
		idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))
		norm := bm25K1 * (1.0 - bm25B + bm25B*float64(chunk.length)/i.avgLen)
		total += idf * tf * (bm25K1 + 1.0) / (tf + norm)
	}
	return total
}

// tokenize is deliberately simple: lower-case whitespace split, mirroring
// how documents were tokenized at hydration.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
