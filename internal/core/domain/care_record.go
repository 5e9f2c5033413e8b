package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CareInstructions holds the growing conditions of a plant.
type CareInstructions struct {
	IdealTemperature  float64  `json:"ideal_temperature"`
	LightingLevel     string   `json:"lighting_level"`
	WateringFrequency string   `json:"watering_frequency"`
	SpecificDiseases  []string `json:"specific_diseases"`
	SoilType          string   `json:"soil_type"`
	VaseType          *string  `json:"vase_type,omitempty"`
}

// CareRecord is the reconciled description of a plant and its care.
// Values are copied on construction; callers pass it by value.
type CareRecord struct {
	LatinName    string           `json:"latin_name"`
	CommonName   string           `json:"common_name"`
	Instructions CareInstructions `json:"instructions"`
}

// NewCareRecord builds a record detached from the caller's slices and pointers.
func NewCareRecord(latinName, commonName string, instructions CareInstructions) CareRecord {
	diseases := make([]string, len(instructions.SpecificDiseases))
	copy(diseases, instructions.SpecificDiseases)
	instructions.SpecificDiseases = diseases

	if instructions.VaseType != nil {
		vase := strings.TrimSpace(*instructions.VaseType)
		if isPlaceholder(vase) {
			instructions.VaseType = nil
		} else {
			instructions.VaseType = &vase
		}
	}

	return CareRecord{
		LatinName:    strings.TrimSpace(latinName),
		CommonName:   strings.TrimSpace(commonName),
		Instructions: instructions,
	}
}

// vasePlaceholders are the ways a model spells "no value" when the schema
// gives it no way to emit null.
var vasePlaceholders = map[string]struct{}{
	"":               {},
	"none":           {},
	"null":           {},
	"n/a":            {},
	"na":             {},
	"not applicable": {},
	"unknown":        {},
	"-":              {},
}

func isPlaceholder(value string) bool {
	_, ok := vasePlaceholders[strings.ToLower(strings.Trim(value, " .\t"))]
	return ok
}

// HasVaseType reports whether the record names a container for the plant.
func (r CareRecord) HasVaseType() bool {
	return r.Instructions.VaseType != nil
}

// careRecordPayload mirrors the model output. Pointers distinguish a missing
// field from its zero value so that validation can reject incomplete output.
type careRecordPayload struct {
	LatinName    *string                  `json:"latin_name" validate:"required,notblank"`
	CommonName   *string                  `json:"common_name" validate:"required,notblank"`
	Instructions *careInstructionsPayload `json:"instructions" validate:"required"`
}

type careInstructionsPayload struct {
	IdealTemperature  *float64 `json:"ideal_temperature" validate:"required"`
	LightingLevel     *string  `json:"lighting_level" validate:"required,notblank"`
	WateringFrequency *string  `json:"watering_frequency" validate:"required,notblank"`
	SpecificDiseases  []string `json:"specific_diseases" validate:"required,dive,notblank"`
	SoilType          *string  `json:"soil_type" validate:"required,notblank"`
	VaseType          *string  `json:"vase_type"`
}

// ParseCareRecord validates raw model output against the care record shape.
// Any deviation yields an ErrSynthesisFailed error and no record.
func ParseCareRecord(raw string) (CareRecord, error) {
	body := ExtractJSONObject(raw)
	if body == "" {
		return CareRecord{}, WrapError(ErrSynthesisFailed, "parse care record", errors.New("no json object in model output"))
	}

	// extra keys are ignored; the validator decides whether the shape holds
	var payload careRecordPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return CareRecord{}, WrapError(ErrSynthesisFailed, "parse care record", fmt.Errorf("decode json: %w", err))
	}
	if err := validateStruct(payload); err != nil {
		return CareRecord{}, WrapError(ErrSynthesisFailed, "parse care record", err)
	}

	in := payload.Instructions
	return NewCareRecord(*payload.LatinName, *payload.CommonName, CareInstructions{
		IdealTemperature:  *in.IdealTemperature,
		LightingLevel:     strings.TrimSpace(*in.LightingLevel),
		WateringFrequency: strings.TrimSpace(*in.WateringFrequency),
		SpecificDiseases:  trimAll(in.SpecificDiseases),
		SoilType:          strings.TrimSpace(*in.SoilType),
		VaseType:          in.VaseType,
	}), nil
}

// ExtractJSONObject returns the outermost {...} span of raw, tolerating code
// fences and prose around it. It returns "" when there is no object.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// CareRecordSchema is the JSON schema handed to structured completions.
func CareRecordSchema() OutputSchema {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return OutputSchema{
		Name: "PlantCareCard",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latin_name":  str("The scientific name of the plant in question"),
				"common_name": str("The common name of the plant in question"),
				"instructions": map[string]any{
					"type":        "object",
					"description": "The care instructions for the plant",
					"properties": map[string]any{
						"ideal_temperature": map[string]any{
							"type":        "number",
							"description": "Ideal temperature for the plant",
						},
						"lighting_level": str("Adequate lighting level for the plant"),
						"watering_frequency": str(
							"How often should the plant be watered expressed in times per day or times per week",
						),
						"specific_diseases": map[string]any{
							"type":        "array",
							"description": "What diseases the plant is most susceptible to",
							"items":       map[string]any{"type": "string"},
						},
						"soil_type": str("The ideal soil type for the plant"),
						"vase_type": map[string]any{
							"type":        []string{"string", "null"},
							"description": "The ideal vase to grow the plant in, null if the plant should not be grown in a vase",
						},
					},
					"required": []string{
						"ideal_temperature",
						"lighting_level",
						"watering_frequency",
						"specific_diseases",
						"soil_type",
					},
				},
			},
			"required": []string{"latin_name", "common_name", "instructions"},
		},
	}
}
