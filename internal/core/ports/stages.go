package ports

import (
	"context"
	"image"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// SpeciesClassifier maps a decoded image to the top-1 species label.
type SpeciesClassifier interface {
	Classify(ctx context.Context, img image.Image) (domain.SpeciesPrediction, error)
}

// KnowledgeRetriever returns trusted passages for a species, newline-joined.
// An empty index yields "" and no error; errors are provider failures.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, species string) (string, error)
}

// WebKnowledgeGatherer returns web search snippets for a species. A non-nil
// error reports failed queries; the returned text still holds the snippets
// of the queries that succeeded.
type WebKnowledgeGatherer interface {
	Gather(ctx context.Context, species string) (string, error)
}

// CareRecordSynthesizer reconciles knowledge into a care record. It never
// fails; a missing record is reported through the outcome.
type CareRecordSynthesizer interface {
	Synthesize(ctx context.Context, internalKnowledge, webKnowledge string) domain.SynthesisOutcome
}

// ArticleComposer renders an article. A nil record yields the apology text
// without a model call.
type ArticleComposer interface {
	Compose(ctx context.Context, record *domain.CareRecord) (string, error)
}

// PipelineObserver receives per-stage and per-run measurements.
type PipelineObserver interface {
	ObserveStage(stage, status string, duration time.Duration)
	ObserveRun(result domain.PipelineResult)
}
