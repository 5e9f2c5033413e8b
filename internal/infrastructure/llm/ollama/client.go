package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	chatModel   string
	embedModel  string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, chatModel, embedModel string, temperature float64, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		chatModel:   chatModel,
		embedModel:  embedModel,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		executor:    executor,
	}
}

// ChatModel talks to /api/chat with streaming disabled.
type ChatModel struct {
	client *Client
}

func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

func (m *ChatModel) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	return m.client.chat(ctx, messages, nil)
}

// CompleteStructured passes the JSON schema as the chat format so the model
// is constrained to it.
func (m *ChatModel) CompleteStructured(ctx context.Context, messages []domain.ChatMessage, schema domain.OutputSchema) (string, error) {
	if schema.Schema == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "ollama chat", errors.New("output schema is empty"))
	}
	return m.client.chat(ctx, messages, schema.Schema)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) chat(ctx context.Context, messages []domain.ChatMessage, format map[string]any) (string, error) {
	if len(messages) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "ollama chat", errors.New("no messages"))
	}

	request := chatRequest{
		Model:    c.chatModel,
		Messages: toChatMessages(messages),
		Stream:   false,
		Options:  chatOptions{Temperature: c.temperature},
	}
	if format != nil {
		request.Format = format
	}

	var response chatResponse
	if err := c.call(ctx, "/api/chat", request, &response, "chat"); err != nil {
		return "", err
	}
	return response.Message.Content, nil
}

// call posts through the resilience executor and marks retryable failures
// as temporary for the HTTP layer.
func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	_, err := resilience.Call(ctx, c.executor, "ollama."+operation, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.postJSON(callCtx, path, payload, out, operation)
	}, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary("ollama "+operation, err)
}
