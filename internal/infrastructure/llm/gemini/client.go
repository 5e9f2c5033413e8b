package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/resilience"
)

// ChatModel is a ports.ChatModel backed by the Gemini API. One client is
// shared by all requests; call Close on shutdown.
type ChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
	executor    *resilience.Executor
}

func New(ctx context.Context, apiKey, model string, temperature float64, executor *resilience.Executor) (*ChatModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &ChatModel{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: float32(temperature),
		executor:    executor,
	}, nil
}

func (m *ChatModel) Close() error {
	return m.client.Close()
}

func (m *ChatModel) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	return m.generate(ctx, messages, nil)
}

func (m *ChatModel) CompleteStructured(ctx context.Context, messages []domain.ChatMessage, schema domain.OutputSchema) (string, error) {
	responseSchema, err := toSchema(schema.Schema)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "gemini structured output", err)
	}
	return m.generate(ctx, messages, responseSchema)
}

func (m *ChatModel) generate(ctx context.Context, messages []domain.ChatMessage, schema *genai.Schema) (string, error) {
	system, parts := splitMessages(messages)
	if len(parts) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "gemini generate", errors.New("no prompt parts"))
	}

	gm := m.client.GenerativeModel(m.model)
	gm.GenerationConfig = genai.GenerationConfig{
		Temperature: &m.temperature,
	}
	if schema != nil {
		gm.GenerationConfig.ResponseMIMEType = "application/json"
		gm.GenerationConfig.ResponseSchema = schema
	}
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := resilience.Call(ctx, m.executor, "gemini.generate", func(callCtx context.Context) (*genai.GenerateContentResponse, error) {
		return gm.GenerateContent(callCtx, parts...)
	}, classifyGeminiError)
	if err != nil {
		if classifyGeminiError(err).Retryable || resilience.IsCircuitOpen(err) {
			return "", domain.WrapError(domain.ErrTemporary, "gemini generate", err)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return "", errors.New("gemini generate: empty response")
	}
	return text, nil
}

// splitMessages moves system messages into the system instruction and keeps
// the rest, in order, as prompt parts.
func splitMessages(messages []domain.ChatMessage) (string, []genai.Part) {
	var system []string
	parts := make([]genai.Part, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	// a system-only conversation still needs a user turn
	if len(parts) == 0 && len(system) > 0 {
		parts = append(parts, genai.Text(system[len(system)-1]))
		system = system[:len(system)-1]
	}
	return strings.Join(system, "\n\n"), parts
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
