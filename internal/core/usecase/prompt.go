package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

// InsufficientContextSentinel is the literal prefix the model must emit
// when the supplied context cannot answer the question. The orchestrator
// reuses it verbatim for the zero-retrieval short circuit.
const InsufficientContextSentinel = "INSUFFICIENT_CONTEXT:"

const systemPrompt = `You are a Governed RAG Assistant for government and enterprise documents.

STRICT RULES:
1. USE ONLY THE PROVIDED CONTEXT - Never use knowledge from your training data.
2. NO HALLUCINATION - If context lacks the information, say so clearly.
3. ALWAYS CITE - After each fact, add a citation like [C1], [C2], etc.
4. REFUSE IF INSUFFICIENT - If you cannot fully answer, start with "INSUFFICIENT_CONTEXT:" then explain and cite what you reviewed.

FORMAT RULES:
- Write a natural language answer with inline citations.
- Use [C1], [C2], [C3] etc. to cite sources (matching the context labels).
- ALWAYS include citations, even when refusing - cite the chunks you reviewed.
- Do NOT copy chunk headers into your answer.
- Keep answers concise and factual.

You are being audited. Follow these rules exactly.`

const userPromptFormat = `### CONTEXT DOCUMENTS
Each context chunk is labeled [C1], [C2], etc. Cite using these labels.

%s

### QUESTION
%s

### YOUR TASK
1. Read the context carefully.
2. Answer the question using ONLY information from the context.
3. After each fact, cite the source with [C1], [C2], etc.
4. If the context does not contain the answer:
   - Start with "INSUFFICIENT_CONTEXT:"
   - Explain what topics ARE covered in the context
   - Cite the chunks you reviewed (e.g., [C1], [C2])
5. Write in clear, natural language.

### ANSWER`

const chunkDelimiter = "\n---\n"

// buildPrompt renders the grounded prompt for a frozen chunk sequence and
// returns the ordinal label map needed to resolve citations afterwards.
// Identical input sequence and question yield a byte-identical prompt.
func buildPrompt(question string, chunks []domain.ScoredChunk) (string, domain.IndexLabelMap) {
	contextBlock, labels := buildContextBlock(chunks)
	prompt := systemPrompt + "\n\n" + fmt.Sprintf(userPromptFormat, contextBlock, question)
	return prompt, labels
}

// buildContextBlock renders chunk i under the ordinal label [C<i>]
// (1-indexed by position) with a header carrying its document id and
// optional section/page metadata.
func buildContextBlock(chunks []domain.ScoredChunk) (string, domain.IndexLabelMap) {
	labels := make(domain.IndexLabelMap, len(chunks))
	parts := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		idx := i + 1
		labels[idx] = domain.LabelEntry{
			ChunkID:      chunk.ChunkID,
			DocumentID:   chunk.DocumentID,
			SectionTitle: chunk.SectionTitle,
			PageNumber:   chunk.PageNumber,
		}

		var header strings.Builder
		fmt.Fprintf(&header, "[C%d] Source: %s", idx, chunk.DocumentID)
		if chunk.SectionTitle != "" {
			fmt.Fprintf(&header, " | Section: %s", chunk.SectionTitle)
		}
		if page := domain.ParsePageNumber(chunk.PageNumber); page != nil {
			fmt.Fprintf(&header, " | Page: %d", *page)
		}

		parts = append(parts, header.String()+"\n"+chunk.Text+"\n")
	}

	return strings.Join(parts, chunkDelimiter), labels
}
