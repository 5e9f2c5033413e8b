package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

const validCardJSON = `{
  "latin_name": "Aloe barbadensis miller",
  "common_name": "Aloe Vera",
  "instructions": {
    "ideal_temperature": 22,
    "lighting_level": "Bright indirect light",
    "watering_frequency": "1x/week",
    "specific_diseases": ["Root rot"],
    "soil_type": "Sandy",
    "vase_type": "Terracotta pot"
  }
}`

func TestSynthesizeProducesRecord(t *testing.T) {
	model := &chatModelFake{structuredOut: "```json\n" + validCardJSON + "\n```"}
	uc := NewSynthesizeCareRecordUseCase(model)

	outcome := uc.Synthesize(context.Background(), "Aloe needs little water.", "care snippet")
	if !outcome.Produced() {
		t.Fatalf("expected record, reason=%s err=%v", outcome.Reason(), outcome.Err())
	}
	record := outcome.Record()
	if record.CommonName != "Aloe Vera" || !record.HasVaseType() {
		t.Fatalf("unexpected record %+v", record)
	}
	if model.lastSchema.Name != "PlantCareCard" {
		t.Fatalf("expected care card schema, got %q", model.lastSchema.Name)
	}
	system := model.lastMessages[0].Content
	if !strings.Contains(system, "Aloe needs little water.") || !strings.Contains(system, "care snippet") {
		t.Fatalf("expected both knowledge sources in prompt")
	}
}

func TestSynthesizeInvalidOutputIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "I cannot help with that"},
		{name: "missing field", raw: `{"latin_name":"X","common_name":"Y","instructions":{"ideal_temperature":20}}`},
		{name: "wrong type", raw: `{"latin_name":"X","common_name":"Y","instructions":{"ideal_temperature":"warm","lighting_level":"a","watering_frequency":"b","specific_diseases":[],"soil_type":"c"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uc := NewSynthesizeCareRecordUseCase(&chatModelFake{structuredOut: tc.raw})
			outcome := uc.Synthesize(context.Background(), "", "")
			if outcome.Produced() {
				t.Fatalf("expected absent record")
			}
			if outcome.Reason() != "invalid_output" {
				t.Fatalf("expected invalid_output, got %s", outcome.Reason())
			}
			if !domain.IsKind(outcome.Err(), domain.ErrSynthesisFailed) {
				t.Fatalf("expected synthesis failure kind, got %v", outcome.Err())
			}
		})
	}
}

func TestSynthesizeProviderErrorIsAbsent(t *testing.T) {
	uc := NewSynthesizeCareRecordUseCase(&chatModelFake{structuredErr: errors.New("model offline")})

	outcome := uc.Synthesize(context.Background(), "internal", "web")
	if outcome.Produced() || outcome.Reason() != "provider_error" {
		t.Fatalf("unexpected outcome reason=%s", outcome.Reason())
	}
}

func TestSynthesizeMarksEmptySources(t *testing.T) {
	model := &chatModelFake{structuredOut: validCardJSON}
	uc := NewSynthesizeCareRecordUseCase(model)

	uc.Synthesize(context.Background(), "", "  ")
	if strings.Count(model.lastMessages[0].Content, "(none)") != 2 {
		t.Fatalf("expected both empty sources rendered as (none)")
	}
}
