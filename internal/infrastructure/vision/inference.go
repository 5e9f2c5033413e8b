package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/resilience"
)

// InferenceClient calls a model server speaking the KServe v2 inference
// protocol (Triton, MLServer, KServe).
type InferenceClient struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewInferenceClient(baseURL string, executor *resilience.Executor) *InferenceClient {
	return &InferenceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type inferTensor struct {
	Name     string    `json:"name"`
	Shape    []int64   `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type inferRequest struct {
	Inputs  []inferTensor       `json:"inputs"`
	Outputs []inferOutputSelect `json:"outputs,omitempty"`
}

type inferOutputSelect struct {
	Name string `json:"name"`
}

type inferResponse struct {
	ModelName string `json:"model_name"`
	Outputs   []struct {
		Name     string    `json:"name"`
		Shape    []int64   `json:"shape"`
		Datatype string    `json:"datatype"`
		Data     []float64 `json:"data"`
	} `json:"outputs"`
}

// Infer sends one FP32 tensor and returns the named output, or the first
// output when the manifest does not name one.
func (c *InferenceClient) Infer(ctx context.Context, m Manifest, tensor []float32) ([]float64, error) {
	size := int64(m.InputSize)
	req := inferRequest{
		Inputs: []inferTensor{{
			Name:     m.InputName,
			Shape:    []int64{1, 3, size, size},
			Datatype: "FP32",
			Data:     tensor,
		}},
	}
	if m.OutputName != "" {
		req.Outputs = []inferOutputSelect{{Name: m.OutputName}}
	}

	path := "/v2/models/" + url.PathEscape(m.ModelName)
	if m.ModelVersion != "" {
		path += "/versions/" + url.PathEscape(m.ModelVersion)
	}
	path += "/infer"

	resp, err := resilience.Call(ctx, c.executor, "inference.infer", func(callCtx context.Context) (*inferResponse, error) {
		return c.post(callCtx, path, req)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("model inference", err)
	}

	for _, out := range resp.Outputs {
		if m.OutputName == "" || out.Name == m.OutputName {
			return out.Data, nil
		}
	}
	return nil, errors.New("inference response has no logits output")
}

func (c *InferenceClient) post(ctx context.Context, path string, payload inferRequest) (*inferResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal infer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create infer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("inference", "infer", resp)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode infer response: %w", err)
	}
	return &out, nil
}
