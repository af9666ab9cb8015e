package gemini

import (
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/internal/llm"
)

// ToResponseSchema converts a JSON Schema map into Gemini's OpenAPI subset:
// upper-case type names, no additionalProperties, and propertyOrdering so
// fields come back in declaration order.
func ToResponseSchema(s map[string]any) map[string]any {
	out := map[string]any{}
	if t, ok := s["type"].(string); ok {
		out["type"] = strings.ToUpper(t)
	}
	if d, ok := s["description"].(string); ok && d != "" {
		out["description"] = d
	}
	if e, ok := s["enum"]; ok {
		out["enum"] = e
	}
	if items, ok := s["items"].(map[string]any); ok {
		out["items"] = ToResponseSchema(items)
	}
	if props, ok := s["properties"].(map[string]any); ok {
		converted := make(map[string]any, len(props))
		for k, v := range props {
			if m, ok := v.(map[string]any); ok {
				converted[k] = ToResponseSchema(m)
			}
		}
		out["properties"] = converted
		out["propertyOrdering"] = llm.OrderedProperties(s)
		if req, ok := s["required"].([]string); ok && len(req) > 0 {
			out["required"] = req
		}
	}
	return out
}
