package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/governed-rag/internal/config"
	"github.com/kirillkom/governed-rag/internal/core/ports"
	"github.com/kirillkom/governed-rag/internal/core/usecase"
	"github.com/kirillkom/governed-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/governed-rag/internal/infrastructure/extractor"
	pdfextractor "github.com/kirillkom/governed-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/governed-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/governed-rag/internal/infrastructure/llm"
	"github.com/kirillkom/governed-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/governed-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/governed-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/governed-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/governed-rag/internal/infrastructure/sparse"
	"github.com/kirillkom/governed-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/governed-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue  ports.MessageQueue
	Repo   ports.DocumentRepository
	Sparse *sparse.Index

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	AnswerUC  ports.AnswerService
	SearchUC  ports.SearchService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)

	generator, err := llm.NewGenerator(llm.Config{
		Backend:            cfg.LLMBackend,
		RemoteEndpoint:     cfg.LLMEndpoint,
		RemoteModel:        cfg.LLMModelName,
		ResilienceExecutor: executor,
	}, ollamaClient)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	store := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	sparseIndex := sparse.NewIndex(logger)
	if err := sparseIndex.Hydrate(ctx, store); err != nil {
		// The API serves degraded (dense-only request failures surface per
		// request); healthz reports the missing sparse leg.
		logger.Error("sparse_index_hydration_failed", "error", err)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewRouter(
		pdfextractor.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, extract, chunker, embedder, store)
	answerUC := usecase.NewAnswerUseCase(embedder, store, sparseIndex, generator, logger, cfg.RAGFusionRRFK, cfg.LLMMaxTokens)
	searchUC := usecase.NewSearchUseCase(embedder, store, sparseIndex, logger, cfg.RAGFusionRRFK)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Sparse: sparseIndex,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		AnswerUC:  answerUC,
		SearchUC:  searchUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
