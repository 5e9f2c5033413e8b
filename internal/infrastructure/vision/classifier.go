package vision

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

type logitsModel interface {
	Infer(ctx context.Context, m Manifest, tensor []float32) ([]float64, error)
}

// Classifier is the ports.SpeciesClassifier over a served image model.
type Classifier struct {
	manifest Manifest
	model    logitsModel
}

func NewClassifier(manifest Manifest, model logitsModel) (*Classifier, error) {
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("classifier manifest: %w", err)
	}
	return &Classifier{manifest: manifest, model: model}, nil
}

func (c *Classifier) Classify(ctx context.Context, img image.Image) (domain.SpeciesPrediction, error) {
	tensor, err := Preprocess(img, c.manifest)
	if err != nil {
		return domain.SpeciesPrediction{}, err
	}

	logits, err := c.model.Infer(ctx, c.manifest, tensor)
	if err != nil {
		return domain.SpeciesPrediction{}, fmt.Errorf("classify species: %w", err)
	}
	if len(logits) != len(c.manifest.Labels) {
		return domain.SpeciesPrediction{}, fmt.Errorf(
			"classify species: model returned %d logits for %d labels",
			len(logits), len(c.manifest.Labels),
		)
	}

	probs, err := softmax(logits)
	if err != nil {
		return domain.SpeciesPrediction{}, fmt.Errorf("classify species: %w", err)
	}

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return domain.SpeciesPrediction{
		Label:      c.manifest.Labels[best],
		Confidence: probs[best],
	}, nil
}

// softmax subtracts the max logit before exponentiating.
func softmax(logits []float64) ([]float64, error) {
	maxLogit := math.Inf(-1)
	for i, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("logit %d is not finite", i)
		}
		if v > maxLogit {
			maxLogit = v
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}
