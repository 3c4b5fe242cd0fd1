package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

func scoredChunk(id, doc, section, page string) domain.ScoredChunk {
	return domain.ScoredChunk{
		ChunkRecord: domain.ChunkRecord{
			ChunkID:      id,
			DocumentID:   doc,
			SectionTitle: section,
			PageNumber:   page,
			AccessLevel:  domain.AccessPublic,
			Text:         "body of " + id,
		},
		Score: 0.5,
	}
}

func TestBuildPromptAssignsContiguousLabelsInInputOrder(t *testing.T) {
	chunks := []domain.ScoredChunk{
		scoredChunk("c-1", "policy.pdf", "Access Control", "3"),
		scoredChunk("c-2", "sop.pdf", "", ""),
		scoredChunk("c-3", "rfp.pdf", "Scope", "None"),
	}

	prompt, labels := buildPrompt("what is the policy?", chunks)

	if len(labels) != 3 {
		t.Fatalf("expected 3 label entries, got %d", len(labels))
	}
	for i := 1; i <= 3; i++ {
		entry, ok := labels[i]
		if !ok {
			t.Fatalf("label %d missing from index map", i)
		}
		if entry.ChunkID != fmt.Sprintf("c-%d", i) {
			t.Fatalf("label %d resolves to %s, want c-%d", i, entry.ChunkID, i)
		}
		if !strings.Contains(prompt, fmt.Sprintf("[C%d] Source:", i)) {
			t.Fatalf("prompt missing header for label C%d", i)
		}
	}

	if !strings.Contains(prompt, "[C1] Source: policy.pdf | Section: Access Control | Page: 3") {
		t.Fatalf("full header with section and page missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[C2] Source: sop.pdf\n") {
		t.Fatalf("bare header must omit absent section and page")
	}
	if strings.Contains(prompt, "[C3] Source: rfp.pdf | Section: Scope | Page") {
		t.Fatalf("sentinel \"None\" page must not render")
	}
	if !strings.Contains(prompt, "what is the policy?") {
		t.Fatalf("question missing from prompt")
	}
}

func TestBuildPromptIsByteIdenticalAcrossCalls(t *testing.T) {
	chunks := []domain.ScoredChunk{
		scoredChunk("c-1", "a.pdf", "S1", "1"),
		scoredChunk("c-2", "b.pdf", "S2", "2"),
	}

	first, _ := buildPrompt("question", chunks)
	second, _ := buildPrompt("question", chunks)
	if first != second {
		t.Fatalf("prompt not deterministic for identical input")
	}
}

func TestBuildContextBlockSeparatesChunksWithFixedDelimiter(t *testing.T) {
	chunks := []domain.ScoredChunk{
		scoredChunk("c-1", "a.pdf", "", ""),
		scoredChunk("c-2", "b.pdf", "", ""),
	}

	block, _ := buildContextBlock(chunks)
	if strings.Count(block, chunkDelimiter) != 1 {
		t.Fatalf("expected exactly one delimiter between two chunks:\n%s", block)
	}
}
