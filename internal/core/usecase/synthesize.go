package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
)

const (
	synthesisReasonProvider = "provider_error"
	synthesisReasonInvalid  = "invalid_output"
	synthesisReasonCanceled = "canceled"
)

type SynthesizeCareRecordUseCase struct {
	model ports.ChatModel
}

func NewSynthesizeCareRecordUseCase(model ports.ChatModel) *SynthesizeCareRecordUseCase {
	return &SynthesizeCareRecordUseCase{model: model}
}

func (uc *SynthesizeCareRecordUseCase) Synthesize(ctx context.Context, internalKnowledge, webKnowledge string) domain.SynthesisOutcome {
	messages := buildSynthesisMessages(internalKnowledge, webKnowledge)

	raw, err := uc.model.CompleteStructured(ctx, messages, domain.CareRecordSchema())
	if err != nil {
		reason := synthesisReasonProvider
		if ctx.Err() != nil {
			reason = synthesisReasonCanceled
		}
		return uc.fail(ctx, reason, err)
	}

	record, err := domain.ParseCareRecord(raw)
	if err != nil {
		return uc.fail(ctx, synthesisReasonInvalid, err)
	}
	return domain.RecordProduced(record)
}

func (uc *SynthesizeCareRecordUseCase) fail(ctx context.Context, reason string, err error) domain.SynthesisOutcome {
	slog.WarnContext(ctx, "synthesis_failed",
		"reason", reason,
		"error", err,
	)
	return domain.SynthesisFailed(reason, domain.WrapError(domain.ErrSynthesisFailed, "synthesize care record", err))
}
