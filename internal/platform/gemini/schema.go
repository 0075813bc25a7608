package gemini

import "google.golang.org/genai"

// SchemaFromJSON converts the subset of JSON Schema used for structured
// output (type, description, properties, required, items, minItems,
// maxItems, minLength, maxLength, enum) into a genai.Schema.
// Unknown keywords are ignored.
func SchemaFromJSON(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		s.Type = schemaType(t)
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				s.Properties[name] = SchemaFromJSON(sub)
			}
		}
	}
	s.Required = stringSlice(m["required"])
	s.Enum = stringSlice(m["enum"])
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = SchemaFromJSON(items)
	}
	s.MinItems = int64Ptr(m["minItems"])
	s.MaxItems = int64Ptr(m["maxItems"])
	s.MinLength = int64Ptr(m["minLength"])
	s.MaxLength = int64Ptr(m["maxLength"])
	return s
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, x := range vals {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func int64Ptr(v any) *int64 {
	n, ok := toFloat(v)
	if !ok {
		return nil
	}
	i := int64(n)
	return &i
}
