package gemini

import (
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// toSchema converts a JSON schema map into the subset Gemini accepts for
// response schemas.
func toSchema(raw map[string]any) (*genai.Schema, error) {
	if raw == nil {
		return nil, fmt.Errorf("schema is empty")
	}

	typeName, nullable := schemaType(raw["type"])
	out := &genai.Schema{Nullable: nullable}
	switch typeName {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	default:
		return nil, fmt.Errorf("unsupported schema type %q", typeName)
	}

	if desc, ok := raw["description"].(string); ok {
		out.Description = desc
	}
	if nullable, ok := raw["nullable"].(bool); ok && nullable {
		out.Nullable = true
	}

	if props, ok := raw["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, value := range props {
			child, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q: expected object", name)
			}
			converted, err := toSchema(child)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			out.Properties[name] = converted
		}
	}

	switch required := raw["required"].(type) {
	case []string:
		out.Required = append([]string(nil), required...)
	case []any:
		for _, v := range required {
			if s, ok := v.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}

	if items, ok := raw["items"].(map[string]any); ok {
		converted, err := toSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		out.Items = converted
	}
	return out, nil
}

// schemaType reads "type" as a name or as a JSON Schema union such as
// ["string", "null"], which Gemini expresses as a nullable type.
func schemaType(value any) (string, bool) {
	var names []string
	switch v := value.(type) {
	case string:
		return v, false
	case []string:
		names = v
	case []any:
		for _, item := range v {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
	}

	typeName, nullable := "", false
	for _, name := range names {
		if name == "null" {
			nullable = true
			continue
		}
		if typeName == "" {
			typeName = name
		}
	}
	return typeName, nullable
}
