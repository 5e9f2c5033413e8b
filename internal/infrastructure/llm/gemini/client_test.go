package gemini

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

func TestToSchemaConvertsCareRecordSchema(t *testing.T) {
	schema, err := toSchema(domain.CareRecordSchema().Schema)
	if err != nil {
		t.Fatalf("toSchema() error = %v", err)
	}
	if schema.Type != genai.TypeObject || len(schema.Required) != 3 {
		t.Fatalf("unexpected root schema %+v", schema)
	}

	instructions := schema.Properties["instructions"]
	if instructions == nil || instructions.Type != genai.TypeObject {
		t.Fatalf("expected nested instructions object")
	}
	if instructions.Properties["ideal_temperature"].Type != genai.TypeNumber {
		t.Fatalf("expected number temperature")
	}
	diseases := instructions.Properties["specific_diseases"]
	if diseases.Type != genai.TypeArray || diseases.Items == nil || diseases.Items.Type != genai.TypeString {
		t.Fatalf("unexpected diseases schema %+v", diseases)
	}
	if !instructions.Properties["vase_type"].Nullable {
		t.Fatalf("expected nullable vase_type")
	}
}

func TestToSchemaReadsTypeUnions(t *testing.T) {
	cases := []struct {
		name     string
		value    any
		want     genai.Type
		nullable bool
	}{
		{name: "plain", value: "string", want: genai.TypeString},
		{name: "typed slice", value: []string{"string", "null"}, want: genai.TypeString, nullable: true},
		{name: "decoded json", value: []any{"null", "number"}, want: genai.TypeNumber, nullable: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schema, err := toSchema(map[string]any{"type": tc.value})
			if err != nil {
				t.Fatalf("toSchema() error = %v", err)
			}
			if schema.Type != tc.want || schema.Nullable != tc.nullable {
				t.Fatalf("got type=%v nullable=%v", schema.Type, schema.Nullable)
			}
		})
	}

	if _, err := toSchema(map[string]any{"type": []string{"null"}}); err == nil {
		t.Fatalf("expected a null-only union to be rejected")
	}
}

func TestToSchemaRejectsUnknownType(t *testing.T) {
	if _, err := toSchema(map[string]any{"type": "tuple"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSplitMessages(t *testing.T) {
	system, parts := splitMessages([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "rules"},
		{Role: domain.RoleUser, Content: "question"},
	})
	if system != "rules" || len(parts) != 1 || parts[0] != genai.Text("question") {
		t.Fatalf("unexpected split %q %v", system, parts)
	}

	system, parts = splitMessages([]domain.ChatMessage{{Role: domain.RoleSystem, Content: "only"}})
	if system != "" || len(parts) != 1 || parts[0] != genai.Text("only") {
		t.Fatalf("expected system-only prompt to become a user part, got %q %v", system, parts)
	}
}

func TestFirstTextJoinsTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("# Aloe"), genai.Text("\nWelcome")}}},
	}}
	if got := firstText(resp); got != "# Aloe\nWelcome" {
		t.Fatalf("firstText() = %q", got)
	}
	if firstText(nil) != "" {
		t.Fatalf("expected empty text for nil response")
	}
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "rest 503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, retryable: true},
		{name: "rest 400", err: &googleapi.Error{Code: http.StatusBadRequest}, retryable: false},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "down"), retryable: true},
		{name: "grpc quota", err: fmt.Errorf("wrap: %w", status.Error(codes.ResourceExhausted, "quota")), retryable: true},
		{name: "grpc denied", err: status.Error(codes.PermissionDenied, "key"), retryable: false},
		{name: "canceled", err: context.Canceled, retryable: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyGeminiError(tc.err).Retryable; got != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", got, tc.retryable)
			}
		})
	}
}
