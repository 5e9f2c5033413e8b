package vision

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// Manifest describes the served plant-types model: how to address it, how
// to prepare its input and how to read its logits.
type Manifest struct {
	ModelName    string    `yaml:"model_name"`
	ModelVersion string    `yaml:"model_version"`
	InputName    string    `yaml:"input_name"`
	OutputName   string    `yaml:"output_name"`
	InputSize    int       `yaml:"input_size"`
	Mean         []float32 `yaml:"mean"`
	Std          []float32 `yaml:"std"`
	Labels       []string  `yaml:"labels"`
}

// DefaultManifest matches the ImageNet-normalized 224px classifier over the
// 30-label plant vocabulary.
func DefaultManifest() Manifest {
	labels := make([]string, len(domain.DefaultSpeciesVocabulary))
	copy(labels, domain.DefaultSpeciesVocabulary)
	return Manifest{
		ModelName:  "plant-types",
		InputName:  "input",
		OutputName: "logits",
		InputSize:  224,
		Mean:       []float32{0.485, 0.456, 0.406},
		Std:        []float32{0.229, 0.224, 0.225},
		Labels:     labels,
	}
}

func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read model manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse model manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("model manifest %s: %w", path, err)
	}
	return m, nil
}

func (m Manifest) Validate() error {
	if strings.TrimSpace(m.ModelName) == "" {
		return errors.New("model_name is required")
	}
	if m.InputSize <= 0 {
		return fmt.Errorf("input_size must be positive, got %d", m.InputSize)
	}
	if len(m.Mean) != 3 || len(m.Std) != 3 {
		return fmt.Errorf("mean and std need 3 channels, got %d/%d", len(m.Mean), len(m.Std))
	}
	for i, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("std[%d] must not be zero", i)
		}
	}
	if len(m.Labels) == 0 {
		return errors.New("labels are required")
	}
	seen := make(map[string]struct{}, len(m.Labels))
	for _, l := range m.Labels {
		if strings.TrimSpace(l) == "" {
			return errors.New("labels must not be blank")
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("duplicate label %q", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}
