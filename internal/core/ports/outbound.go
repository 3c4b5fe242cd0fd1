package ports

import (
	"context"
	"io"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, domain.IngestEvent) error) error
}

// TextExtractor extracts page-wise plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits extracted text into section-labeled chunks.
type Chunker interface {
	Split(text, defaultSection string) []domain.TextChunk
}

// ChunkStore is the external chunk corpus: it indexes chunk records,
// performs filtered similarity search and enumerates the full corpus for
// sparse-index hydration. Search results are ordered by similarity
// descending and deterministic for a fixed index snapshot.
type ChunkStore interface {
	IndexChunks(ctx context.Context, chunks []domain.ChunkRecord, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.ChunkRecord, error)
	EnumerateChunks(ctx context.Context) ([]domain.ChunkRecord, error)
}

// SparseSearcher ranks the corpus lexically. Implementations may return
// fewer than limit chunks when the governance filter thins the candidate
// window; callers must not treat a short list as an error.
type SparseSearcher interface {
	SearchLexical(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.ChunkRecord, error)
}

// AnswerGenerator executes the language model with deterministic decoding.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	ModelName() string
}
