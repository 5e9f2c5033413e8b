package domain

import "time"

// ApologyArticle is returned whenever no care record backs the article.
const ApologyArticle = "I'm sorry, I wasn't able to find detailed information or generate a care card for that plant."

type FallbackReason string

const (
	FallbackNone            FallbackReason = ""
	FallbackClassifyFailed  FallbackReason = "classify_failed"
	FallbackSynthesisFailed FallbackReason = "synthesis_failed"
	FallbackComposeFailed   FallbackReason = "compose_failed"
)

// SynthesisOutcome is the tagged result of the synthesizer: either a
// validated record or the reason no record exists.
type SynthesisOutcome struct {
	record *CareRecord
	reason string
	err    error
}

func RecordProduced(record CareRecord) SynthesisOutcome {
	return SynthesisOutcome{record: &record}
}

func SynthesisFailed(reason string, err error) SynthesisOutcome {
	if reason == "" {
		reason = "unknown"
	}
	return SynthesisOutcome{reason: reason, err: err}
}

func (o SynthesisOutcome) Produced() bool { return o.record != nil }

// Record returns a copy of the synthesized record, or nil when absent.
func (o SynthesisOutcome) Record() *CareRecord {
	if o.record == nil {
		return nil
	}
	cp := NewCareRecord(o.record.LatinName, o.record.CommonName, o.record.Instructions)
	return &cp
}

func (o SynthesisOutcome) Reason() string { return o.reason }

func (o SynthesisOutcome) Err() error { return o.err }

// PipelineResult is what one run of the article pipeline produced.
type PipelineResult struct {
	RunID          string            `json:"run_id"`
	Article        string            `json:"article"`
	Species        SpeciesPrediction `json:"species"`
	FallbackReason FallbackReason    `json:"fallback_reason,omitempty"`
	Duration       time.Duration     `json:"duration"`
}

func (r PipelineResult) Degraded() bool { return r.FallbackReason != FallbackNone }

// PipelineRun is the persisted summary of a pipeline result.
type PipelineRun struct {
	ID             string         `json:"id"`
	RequestID      string         `json:"request_id,omitempty"`
	Species        string         `json:"species"`
	Confidence     float64        `json:"confidence"`
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"`
	ArticleChars   int            `json:"article_chars"`
	DurationMS     int64          `json:"duration_ms"`
	CreatedAt      time.Time      `json:"created_at"`
}

func NewPipelineRun(result PipelineResult, requestID string, at time.Time) PipelineRun {
	return PipelineRun{
		ID:             result.RunID,
		RequestID:      requestID,
		Species:        result.Species.Label,
		Confidence:     result.Species.Confidence,
		FallbackReason: result.FallbackReason,
		ArticleChars:   len([]rune(result.Article)),
		DurationMS:     result.Duration.Milliseconds(),
		CreatedAt:      at.UTC(),
	}
}
