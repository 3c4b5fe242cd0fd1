// Package chunking splits extracted text into section-tagged chunks.
// Headers common in policy and compliance documents (ARTICLE IV,
// 5.3 Management Controls, M1.1 Entity Context) open a new section; the
// section body is then windowed into overlapping fixed-size chunks.
package chunking

import (
	"regexp"
	"strings"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

var headerPattern = regexp.MustCompile(
	`(?m)^(?:ARTICLE|SECTION|PART|CHAPTER)\s+[IVX0-9]+.*$` +
		`|^\d+\.\d*(?:\.\d+)*\s+[A-Z].*$` +
		`|^[A-Z]\d+(?:\.\d+)*\s+[A-Z].*$`,
)

var (
	trailingPageNumber = regexp.MustCompile(`\s+\d+$`)
	leadingNumbering   = regexp.MustCompile(`^[\d.\s]+`)
)

// headerStopwords mark sentence starts, not section titles.
var headerStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "if": {}, "when": {}, "we": {}, "it": {}, "there": {},
}

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string, defaultSection string) []domain.TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if strings.TrimSpace(defaultSection) == "" {
		defaultSection = "General"
	}

	var out []domain.TextChunk
	for _, section := range splitSections(text, defaultSection) {
		for _, piece := range s.window(section.body) {
			out = append(out, domain.TextChunk{
				SectionTitle: section.title,
				Text:         piece,
			})
		}
	}
	return out
}

type section struct {
	title string
	body  string
}

func splitSections(text, defaultSection string) []section {
	matches := headerPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []section{{title: defaultSection, body: text}}
	}

	var (
		sections     []section
		currentTitle = defaultSection
		contentStart = 0
	)
	for _, m := range matches {
		header := cleanHeader(text[m[0]:m[1]])
		if !isValidHeader(header) {
			continue
		}

		prev := text[contentStart:m[0]]
		if strings.TrimSpace(prev) != "" || currentTitle != defaultSection {
			sections = append(sections, section{title: currentTitle, body: prev})
		}
		currentTitle = header
		contentStart = m[1]
	}
	sections = append(sections, section{title: currentTitle, body: text[contentStart:]})
	return sections
}

func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func cleanHeader(header string) string {
	header = strings.TrimSpace(strings.ReplaceAll(header, "\n", " "))
	return trailingPageNumber.ReplaceAllString(header, "")
}

// isValidHeader filters out sentences that merely start like a header,
// e.g. "1. The supplier shall provide ...".
func isValidHeader(header string) bool {
	if len(header) > 80 {
		return false
	}

	titleText := strings.TrimSpace(leadingNumbering.ReplaceAllString(header, ""))
	if titleText == "" {
		// Bare numbering like "1.2.3" still marks a section.
		return true
	}

	firstWord := strings.ToLower(strings.Fields(titleText)[0])
	if _, ok := headerStopwords[firstWord]; ok {
		return false
	}
	if strings.HasSuffix(header, ".") {
		return false
	}
	padded := " " + titleText + " "
	if strings.Contains(padded, " is ") || strings.Contains(padded, " are ") {
		return false
	}
	return true
}
