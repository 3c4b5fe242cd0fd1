package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"
	AccessRestricted AccessLevel = "restricted"
)

func ParseAccessLevel(raw string) (AccessLevel, error) {
	switch AccessLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case AccessPublic:
		return AccessPublic, nil
	case AccessRestricted:
		return AccessRestricted, nil
	default:
		return "", fmt.Errorf("unknown access level: %q", raw)
	}
}

// ChunkRecord is the immutable retrievable unit: a bounded span of source
// text plus the governance metadata attached at ingestion time.
// PageNumber carries the raw payload value; legacy ingests stored "" or
// "None" for pageless chunks, so consumers parse it with ParsePageNumber.
type ChunkRecord struct {
	ChunkID      string      `json:"chunk_id"`
	DocumentID   string      `json:"document_id"`
	DocumentType string      `json:"document_type"`
	SectionTitle string      `json:"section_title,omitempty"`
	PageNumber   string      `json:"page_number,omitempty"`
	AccessLevel  AccessLevel `json:"access_level"`
	Text         string      `json:"text"`
}

// ScoredChunk is a ChunkRecord annotated with its fused retrieval score.
// Instances exist only within a single request and are frozen after fusion.
type ScoredChunk struct {
	ChunkRecord
	Score float64 `json:"score"`
}

// SearchFilter is the metadata predicate applied by both retrieval legs.
// Policy is strict equality: a public request matches only public chunks
// and a restricted request matches only restricted chunks.
type SearchFilter struct {
	AccessLevel AccessLevel `json:"access_level"`
}

func (f SearchFilter) Matches(chunk ChunkRecord) bool {
	return chunk.AccessLevel == f.AccessLevel
}

// QueryContext carries one request through the pipeline. Immutable once built.
type QueryContext struct {
	Text        string
	AccessLevel AccessLevel
	K           int
	RequestID   string
}

// LabelEntry is the identifying metadata behind one ordinal context label.
type LabelEntry struct {
	ChunkID      string
	DocumentID   string
	SectionTitle string
	PageNumber   string
}

// IndexLabelMap maps 1-indexed ordinal labels to the chunks shown to the
// model under those labels. Scoped to one request, discarded afterwards.
type IndexLabelMap map[int]LabelEntry

type Citation struct {
	ChunkID      string `json:"chunk_id"`
	Source       string `json:"source"`
	SectionTitle string `json:"section_title,omitempty"`
	PageNumber   *int   `json:"page_number,omitempty"`
}

// ParsePageNumber normalizes a raw page payload value. Empty strings, the
// literal "None" sentinel and non-numeric garbage all map to nil.
func ParsePageNumber(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "None" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

type AnswerMetrics struct {
	RetrievalLatencyMS  float64  `json:"retrieval_latency_ms"`
	GenerationLatencyMS float64  `json:"generation_latency_ms"`
	ModelName           string   `json:"model_name"`
	ChunksUsed          int      `json:"chunks_used"`
	AvgRetrievalScore   *float64 `json:"avg_retrieval_score,omitempty"`
}

type AnswerResult struct {
	RequestID string        `json:"request_id"`
	Answer    string        `json:"answer"`
	Citations []Citation    `json:"citations"`
	Metrics   AnswerMetrics `json:"metrics"`
}

type SearchResult struct {
	RequestID string        `json:"request_id"`
	Results   []ScoredChunk `json:"results"`
	LatencyMS float64       `json:"latency_ms"`
}
