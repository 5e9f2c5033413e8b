package vision

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

type logitsFake struct {
	logits []float64
	err    error
	tensor []float32
}

func (f *logitsFake) Infer(_ context.Context, _ Manifest, tensor []float32) ([]float64, error) {
	f.tensor = tensor
	return f.logits, f.err
}

func TestClassifierPicksArgmax(t *testing.T) {
	m := DefaultManifest()
	logits := make([]float64, len(m.Labels))
	logits[15] = 9 // mango
	logits[0] = 3
	model := &logitsFake{logits: logits}

	c, err := NewClassifier(m, model)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	pred, err := c.Classify(context.Background(), uniformImage(64, 64, color.RGBA{G: 200, A: 255}))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pred.Label != "mango" {
		t.Fatalf("expected mango, got %s", pred.Label)
	}
	if pred.Confidence <= 0.5 || pred.Confidence > 1 {
		t.Fatalf("unexpected confidence %v", pred.Confidence)
	}
	if len(model.tensor) != 3*224*224 {
		t.Fatalf("expected preprocessed tensor, got %d values", len(model.tensor))
	}
}

func TestClassifierErrors(t *testing.T) {
	m := DefaultManifest()
	img := uniformImage(32, 32, color.RGBA{A: 255})

	c, _ := NewClassifier(m, &logitsFake{logits: []float64{1, 2}})
	if _, err := c.Classify(context.Background(), img); err == nil {
		t.Fatalf("expected logit count mismatch error")
	}

	bad := make([]float64, len(m.Labels))
	bad[3] = math.NaN()
	c, _ = NewClassifier(m, &logitsFake{logits: bad})
	if _, err := c.Classify(context.Background(), img); err == nil {
		t.Fatalf("expected non-finite logit error")
	}

	c, _ = NewClassifier(m, &logitsFake{err: errors.New("server down")})
	if _, err := c.Classify(context.Background(), img); err == nil {
		t.Fatalf("expected inference error")
	}
}

func TestSoftmaxIsStableForLargeLogits(t *testing.T) {
	probs, err := softmax([]float64{1000, 1001, 999})
	if err != nil {
		t.Fatalf("softmax() error = %v", err)
	}
	var sum float64
	for _, p := range probs {
		if math.IsNaN(p) {
			t.Fatalf("unexpected NaN")
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 || probs[1] < probs[0] {
		t.Fatalf("unexpected probabilities %v", probs)
	}
}

func TestInferenceClientSpeaksV2Protocol(t *testing.T) {
	m := DefaultManifest()
	var captured inferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/models/plant-types/infer" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"model_name":"plant-types","outputs":[{"name":"logits","shape":[1,3],"datatype":"FP32","data":[0.1,2.5,-1]}]}`))
	}))
	defer server.Close()

	client := NewInferenceClient(server.URL, nil)
	logits, err := client.Infer(context.Background(), m, make([]float32, 3*224*224))
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if len(logits) != 3 || logits[1] != 2.5 {
		t.Fatalf("unexpected logits %v", logits)
	}
	in := captured.Inputs[0]
	if in.Name != "input" || in.Datatype != "FP32" || len(in.Shape) != 4 || in.Shape[3] != 224 {
		t.Fatalf("unexpected input tensor header %+v", in.Shape)
	}
	if len(captured.Outputs) != 1 || captured.Outputs[0].Name != "logits" {
		t.Fatalf("expected logits output selection")
	}
}

func TestInferenceClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not ready", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewInferenceClient(server.URL, nil).Infer(context.Background(), DefaultManifest(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}
