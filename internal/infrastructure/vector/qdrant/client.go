package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/resilience"
)

// passageNamespace seeds deterministic point ids so reseeding a file
// overwrites its passages instead of duplicating them.
var passageNamespace = uuid.MustParse("8f3d2c4e-5b7a-4e61-9c0d-2a1b3c4d5e6f")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) IndexPassages(ctx context.Context, source domain.KnowledgeSource, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}
	// A shorter revision of the file would otherwise leave its old tail chunks behind.
	if err := c.deleteSource(ctx, source); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i := range chunks {
		points = append(points, point{
			ID:     passageID(source, i),
			Vector: vectors[i],
			Payload: map[string]any{
				"source_id":   sourceKey(source),
				"source":      source.Filename,
				"chunk_index": i,
				"text":        chunks[i],
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	_, err := resilience.Call(ctx, c.executor, "qdrant.upsert", func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.doJSON(callCtx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
	}, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary("qdrant upsert", err)
}

func (c *Client) deleteSource(ctx context.Context, source domain.KnowledgeSource) error {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source_id", "match": map[string]any{"value": sourceKey(source)}},
			},
		},
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	_, err := resilience.Call(ctx, c.executor, "qdrant.delete", func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.doJSON(callCtx, http.MethodPost, url, reqBody, nil, "delete")
	}, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary("qdrant delete", err)
}

// Search returns the nearest passages. A collection that was never seeded
// reads as an empty index.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	_, err := resilience.Call(ctx, c.executor, "qdrant.search", func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.doJSON(callCtx, http.MethodPost, url, reqBody, &searchResp, "search")
	}, resilience.ClassifyHTTPError)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, resilience.WrapTemporary("qdrant search", err)
	}

	out := make([]domain.Passage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Passage{
			ID:         fmt.Sprintf("%v", r.ID),
			Source:     getStringPayload(r.Payload, "source"),
			ChunkIndex: getIntPayload(r.Payload, "chunk_index"),
			Text:       getStringPayload(r.Payload, "text"),
			Score:      r.Score,
		})
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.doJSON(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")
	// 409 if already exists (depends on version/config).
	if err != nil && !isStatus(err, http.StatusConflict) {
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func passageID(source domain.KnowledgeSource, chunkIndex int) string {
	return uuid.NewSHA1(passageNamespace, []byte(fmt.Sprintf("%s#%d", sourceKey(source), chunkIndex))).String()
}

func sourceKey(source domain.KnowledgeSource) string {
	if source.ID == "" {
		return source.Filename
	}
	return source.ID
}

func isStatus(err error, code int) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
