package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into governed chunk
// records: extract page-wise text, carve section-labeled chunks, embed and
// index them into the chunk store. The sparse index does not pick up new
// chunks until the next rehydration; that restart requirement is an
// accepted operational constraint.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.ChunkStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.ChunkStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) (*domain.ProcessReport, error) {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return nil, fmt.Errorf("set status=ready: %w", err)
	}
	return report, nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.ProcessReport, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	pages, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	records := uc.buildChunkRecords(doc, pages)
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(records)),
		)
	}

	if err := uc.store.IndexChunks(ctx, records, vectors); err != nil {
		return nil, fmt.Errorf("index chunks in chunk store: %w", err)
	}
	return &domain.ProcessReport{ChunksIndexed: len(records), AccessLevel: doc.AccessLevel}, nil
}

// buildChunkRecords carves every extracted page and stamps each chunk with
// the document's governance metadata. The document filename acts as the
// user-facing document id, matching what citations report as the source.
func (uc *ProcessDocumentUseCase) buildChunkRecords(doc *domain.Document, pages []domain.Page) []domain.ChunkRecord {
	var records []domain.ChunkRecord
	sectionTitle := "General"

	for _, page := range pages {
		chunks := uc.chunker.Split(page.Text, sectionTitle)
		for _, chunk := range chunks {
			if chunk.SectionTitle != "" {
				// Sections continue across page boundaries until the
				// next detected header.
				sectionTitle = chunk.SectionTitle
			}
			pageNumber := ""
			if page.Number > 0 {
				pageNumber = strconv.Itoa(page.Number)
			}
			records = append(records, domain.ChunkRecord{
				ChunkID:      uuid.NewString(),
				DocumentID:   doc.Filename,
				DocumentType: string(doc.DocumentType),
				SectionTitle: sectionTitle,
				PageNumber:   pageNumber,
				AccessLevel:  doc.AccessLevel,
				Text:         chunk.Text,
			})
		}
	}
	return records
}
