// Package extractor routes documents to a format-specific text extractor.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/core/ports"
)

type Router struct {
	pdf   ports.TextExtractor
	plain ports.TextExtractor
}

func NewRouter(pdf, plain ports.TextExtractor) *Router {
	return &Router{pdf: pdf, plain: plain}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error) {
	if strings.EqualFold(filepath.Ext(doc.Filename), ".pdf") {
		return r.pdf.Extract(ctx, doc)
	}
	return r.plain.Extract(ctx, doc)
}
