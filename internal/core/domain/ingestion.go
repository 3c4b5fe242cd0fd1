package domain

import "time"

// Page is one extracted page of a source document. Plaintext sources
// produce a single page with Number 0 (no page metadata).
type Page struct {
	Number int
	Text   string
}

// TextChunk is a chunker output: a bounded span of text plus the section
// title it was carved from.
type TextChunk struct {
	SectionTitle string
	Text         string
}

// ProcessReport summarizes a completed processing run for callers that
// track indexing volume per governance tier.
type ProcessReport struct {
	ChunksIndexed int
	AccessLevel   AccessLevel
}

// IngestEvent is the queue envelope announcing an uploaded document.
// EnqueuedAt lets consumers measure queue lag without a repository read.
type IngestEvent struct {
	DocumentID string    `json:"document_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
