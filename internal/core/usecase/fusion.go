package usecase

import (
	"sort"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

type fusedCandidate struct {
	chunk domain.ChunkRecord
	score float64
	order int
}

// fuseRRF combines two already-filtered ranked lists with Reciprocal Rank
// Fusion: an item at zero-based rank r contributes 1/(rrfK+r+1), summed
// additively per chunk id across both lists. The dense list is processed
// before the sparse list, and score ties break by first-insertion order,
// which keeps the output deterministic for identical inputs. Chunks
// without an id cannot be fused and are dropped before scoring.
func fuseRRF(dense, sparse []domain.ChunkRecord, rrfK, limit int) []domain.ScoredChunk {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*fusedCandidate, len(dense)+len(sparse))
	inserted := 0
	addList := func(chunks []domain.ChunkRecord) {
		for rank, chunk := range chunks {
			if chunk.ChunkID == "" {
				continue
			}
			candidate, ok := acc[chunk.ChunkID]
			if !ok {
				candidate = &fusedCandidate{chunk: chunk, order: inserted}
				acc[chunk.ChunkID] = candidate
				inserted++
			}
			candidate.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	addList(dense)
	addList(sparse)

	out := make([]*fusedCandidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	frozen := make([]domain.ScoredChunk, 0, len(out))
	for _, c := range out {
		frozen = append(frozen, domain.ScoredChunk{ChunkRecord: c.chunk, Score: c.score})
	}
	return frozen
}
