package ports

import (
	"context"
	"image"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// ArticlePipeline is the inbound contract for turning a plant photo into a care article.
type ArticlePipeline interface {
	Run(ctx context.Context, img image.Image) (string, error)
	RunDetailed(ctx context.Context, img image.Image) (*domain.PipelineResult, error)
}

// RunReader is the inbound read model for stored pipeline runs.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.PipelineRun, error)
	ListRecent(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}

// KnowledgeSeeder is the inbound contract for building the internal knowledge index.
type KnowledgeSeeder interface {
	SeedAll(ctx context.Context) (*domain.SeedReport, error)
}
