package usecase

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
	"github.com/kirillkom/plant-care-assistant/internal/observability/logging"
)

const (
	StageClassify   = "classify"
	StageRetrieve   = "retrieve"
	StageGather     = "gather"
	StageSynthesize = "synthesize"
	StageCompose    = "compose"

	StageStatusOK       = "ok"
	StageStatusDegraded = "degraded"
	StageStatusError    = "error"
	StageStatusSkipped  = "skipped"
)

// PipelineUseCase runs the five stages over one request state, strictly in
// order. Only an invalid image or a canceled context make it fail; every
// other failure ends in a degraded article.
type PipelineUseCase struct {
	classifier  ports.SpeciesClassifier
	retriever   ports.KnowledgeRetriever
	gatherer    ports.WebKnowledgeGatherer
	synthesizer ports.CareRecordSynthesizer
	composer    ports.ArticleComposer
	observer    ports.PipelineObserver
	now         func() time.Time
	newID       func() string
}

func NewPipelineUseCase(
	classifier ports.SpeciesClassifier,
	retriever ports.KnowledgeRetriever,
	gatherer ports.WebKnowledgeGatherer,
	synthesizer ports.CareRecordSynthesizer,
	composer ports.ArticleComposer,
	observer ports.PipelineObserver,
) *PipelineUseCase {
	return &PipelineUseCase{
		classifier:  classifier,
		retriever:   retriever,
		gatherer:    gatherer,
		synthesizer: synthesizer,
		composer:    composer,
		observer:    observer,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

func (uc *PipelineUseCase) Run(ctx context.Context, img image.Image) (string, error) {
	result, err := uc.RunDetailed(ctx, img)
	if err != nil {
		return "", err
	}
	return result.Article, nil
}

func (uc *PipelineUseCase) RunDetailed(ctx context.Context, img image.Image) (*domain.PipelineResult, error) {
	startedAt := uc.now()
	state, err := domain.NewRequestState(img)
	if err != nil {
		return nil, err
	}

	result := &domain.PipelineResult{RunID: uc.newID()}
	requestID := logging.RequestIDFromContext(ctx)

	if err := uc.classify(ctx, state, result); err != nil {
		return nil, err
	}

	if _, ok := state.Species(); ok {
		if err := uc.enrich(ctx, state); err != nil {
			return nil, err
		}
	} else {
		uc.observeStage(StageRetrieve, StageStatusSkipped, 0)
		uc.observeStage(StageGather, StageStatusSkipped, 0)
		uc.observeStage(StageSynthesize, StageStatusSkipped, 0)
	}

	outcome := state.Synthesis()
	if !outcome.Produced() && result.FallbackReason == domain.FallbackNone {
		result.FallbackReason = domain.FallbackSynthesisFailed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	article, err := uc.compose(ctx, outcome.Record(), result)
	if err != nil {
		return nil, err
	}
	if err := state.SetArticle(article); err != nil {
		return nil, err
	}
	if result.Article, err = state.TakeArticle(); err != nil {
		return nil, err
	}

	result.Duration = uc.now().Sub(startedAt)
	if uc.observer != nil {
		uc.observer.ObserveRun(*result)
	}
	slog.InfoContext(ctx, "pipeline_run",
		"request_id", requestID,
		"run_id", result.RunID,
		"species", result.Species.Label,
		"confidence", result.Species.Confidence,
		"fallback_reason", string(result.FallbackReason),
		"article_chars", len([]rune(result.Article)),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (uc *PipelineUseCase) classify(ctx context.Context, state *domain.RequestState, result *domain.PipelineResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := state.TakeImage()
	if err != nil {
		return err
	}

	started := uc.now()
	prediction, err := uc.classifier.Classify(ctx, img)
	if err != nil {
		uc.observeStage(StageClassify, StageStatusError, uc.now().Sub(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		uc.degraded(ctx, StageClassify, err)
		result.FallbackReason = domain.FallbackClassifyFailed
		return state.SetClassificationFailed(err)
	}
	uc.observeStage(StageClassify, StageStatusOK, uc.now().Sub(started))

	result.Species = prediction
	return state.SetSpecies(prediction)
}

// enrich runs retrieve, gather and synthesize for a classified request.
func (uc *PipelineUseCase) enrich(ctx context.Context, state *domain.RequestState) error {
	species, _ := state.Species()

	if err := ctx.Err(); err != nil {
		return err
	}
	started := uc.now()
	internal, err := uc.retriever.Retrieve(ctx, species.Label)
	status := StageStatusOK
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		uc.degraded(ctx, StageRetrieve, err)
		internal = ""
		status = StageStatusDegraded
	}
	uc.observeStage(StageRetrieve, status, uc.now().Sub(started))
	if err := state.SetInternalKnowledge(internal); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	started = uc.now()
	web, err := uc.gatherer.Gather(ctx, species.Label)
	status = StageStatusOK
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		uc.degraded(ctx, StageGather, err)
		status = StageStatusDegraded
	}
	uc.observeStage(StageGather, status, uc.now().Sub(started))
	if err := state.SetWebKnowledge(web); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	started = uc.now()
	outcome := uc.synthesizer.Synthesize(ctx, state.InternalKnowledge(), state.WebKnowledge())
	if !outcome.Produced() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		uc.observeStage(StageSynthesize, StageStatusDegraded, uc.now().Sub(started))
	} else {
		uc.observeStage(StageSynthesize, StageStatusOK, uc.now().Sub(started))
	}
	return state.SetSynthesis(outcome)
}

// compose falls back to the apology when the model cannot write the article.
func (uc *PipelineUseCase) compose(ctx context.Context, record *domain.CareRecord, result *domain.PipelineResult) (string, error) {
	started := uc.now()
	article, err := uc.composer.Compose(ctx, record)
	if err != nil {
		uc.observeStage(StageCompose, StageStatusError, uc.now().Sub(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		uc.degraded(ctx, StageCompose, err)
		result.FallbackReason = domain.FallbackComposeFailed
		return domain.ApologyArticle, nil
	}
	if article == "" {
		uc.observeStage(StageCompose, StageStatusError, uc.now().Sub(started))
		uc.degraded(ctx, StageCompose, errors.New("composer returned empty article"))
		result.FallbackReason = domain.FallbackComposeFailed
		return domain.ApologyArticle, nil
	}
	uc.observeStage(StageCompose, StageStatusOK, uc.now().Sub(started))
	return article, nil
}

func (uc *PipelineUseCase) degraded(ctx context.Context, stage string, err error) {
	slog.WarnContext(ctx, "pipeline_stage_degraded",
		"stage", stage,
		"error", err,
	)
}

func (uc *PipelineUseCase) observeStage(stage, status string, duration time.Duration) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveStage(stage, status, duration)
}
