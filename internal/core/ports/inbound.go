package ports

import (
	"context"
	"io"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// AnswerService is the inbound contract for governed answer synthesis.
type AnswerService interface {
	Answer(ctx context.Context, query domain.QueryContext) (*domain.AnswerResult, error)
}

// SearchService is the inbound contract for retrieval-only queries.
type SearchService interface {
	Search(ctx context.Context, query domain.QueryContext) (*domain.SearchResult, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.ProcessReport, error)
}
