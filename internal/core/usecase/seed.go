package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
)

// SeedKnowledgeUseCase builds the internal knowledge index from curated files.
type SeedKnowledgeUseCase struct {
	storage    ports.ObjectStorage
	extractors []ports.TextExtractor
	chunker    ports.Chunker
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
}

func NewSeedKnowledgeUseCase(
	storage ports.ObjectStorage,
	extractors []ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
) *SeedKnowledgeUseCase {
	return &SeedKnowledgeUseCase{
		storage:    storage,
		extractors: extractors,
		chunker:    chunker,
		embedder:   embedder,
		vectorDB:   vectorDB,
	}
}

// SeedAll indexes every source it can. A broken file is recorded in the
// report and does not stop the pass; listing failures and cancellation do.
func (uc *SeedKnowledgeUseCase) SeedAll(ctx context.Context) (*domain.SeedReport, error) {
	sources, err := uc.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list knowledge sources: %w", err)
	}

	report := &domain.SeedReport{Sources: len(sources)}
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunks, err := uc.seedSource(ctx, source)
		if err != nil {
			slog.WarnContext(ctx, "seed_source_failed", "filename", source.Filename, "error", err)
			report.Failures = append(report.Failures, domain.SeedFailure{
				Filename: source.Filename,
				Error:    err.Error(),
			})
			continue
		}
		report.Indexed++
		report.Chunks += chunks
		slog.InfoContext(ctx, "seed_source_indexed", "filename", source.Filename, "chunks", chunks)
	}
	return report, nil
}

func (uc *SeedKnowledgeUseCase) seedSource(ctx context.Context, source domain.KnowledgeSource) (int, error) {
	text, err := uc.extractText(ctx, source)
	if err != nil {
		return 0, err
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk source", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectorDB.IndexPassages(ctx, source, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index passages in vector db: %w", err)
	}
	return len(chunks), nil
}

func (uc *SeedKnowledgeUseCase) extractText(ctx context.Context, source domain.KnowledgeSource) (string, error) {
	for _, extractor := range uc.extractors {
		if !extractor.Supports(source) {
			continue
		}
		text, err := extractor.Extract(ctx, source)
		if err != nil {
			return "", fmt.Errorf("extract text: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
		}
		return text, nil
	}
	return "", domain.WrapError(
		domain.ErrInvalidInput,
		"extract text",
		fmt.Errorf("unsupported source type %q", source.MimeType),
	)
}
