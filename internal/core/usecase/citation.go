package usecase

import (
	"log/slog"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

// maxLabelDigits bounds ordinal parsing; anything longer is model noise,
// not a plausible context label.
const maxLabelDigits = 6

// scanLabels walks the model output looking for tokens of the fixed label
// grammar "[C<digits>]", case-insensitive. It returns every well-formed
// ordinal in order of appearance, duplicates included. A hand-written
// scanner rather than a regexp so the grammar stays explicit and
// adversarial inputs (labels inside quotes, stray brackets, huge numbers)
// degrade predictably.
func scanLabels(text string) []int {
	var ordinals []int
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		j := i + 1
		if j >= len(text) || (text[j] != 'C' && text[j] != 'c') {
			continue
		}
		j++
		start := j
		for j < len(text) && text[j] >= '0' && text[j] <= '9' {
			j++
		}
		digits := j - start
		if digits == 0 || digits > maxLabelDigits || j >= len(text) || text[j] != ']' {
			continue
		}
		n := 0
		for _, c := range []byte(text[start:j]) {
			n = n*10 + int(c-'0')
		}
		ordinals = append(ordinals, n)
		i = j
	}
	return ordinals
}

// extractCitations resolves ordinal labels in the model answer back to the
// persistent chunk identifiers that were actually shown to the model.
// First-occurrence order is preserved, repeats are dropped, and labels
// outside the map (hallucinated ordinals) are skipped with a warning -
// citation resolution never fails a request.
func extractCitations(answer string, labels domain.IndexLabelMap, logger *slog.Logger) []domain.Citation {
	seen := make(map[int]struct{})
	citations := make([]domain.Citation, 0, len(labels))

	for _, ordinal := range scanLabels(answer) {
		if _, dup := seen[ordinal]; dup {
			continue
		}
		seen[ordinal] = struct{}{}

		entry, ok := labels[ordinal]
		if !ok {
			logger.Warn("citation_label_unresolved", "label", ordinal, "labels_shown", len(labels))
			continue
		}

		citations = append(citations, domain.Citation{
			ChunkID:      entry.ChunkID,
			Source:       entry.DocumentID,
			SectionTitle: entry.SectionTitle,
			PageNumber:   domain.ParsePageNumber(entry.PageNumber),
		})
	}

	return citations
}
