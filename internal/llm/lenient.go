package llm

import (
	"log/slog"
	"strconv"
	"strings"
)

// CoerceToSchema repairs common scalar drift in a decoded response so it can
// validate: numbers where strings are declared, "true"/"false" strings where
// booleans are declared, null arrays, and keys the schema does not allow.
// It never invents required values. v is modified in place where possible;
// the repaired value and the list of touched paths are returned.
func CoerceToSchema(v any, schema map[string]any, logger *slog.Logger) (any, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	var touched []string
	out := coerce(v, schema, "$", &touched)
	if len(touched) > 0 {
		logger.Warn("llm.extract.lenient_coercion", "touched", touched)
	}
	return out, touched
}

func coerce(v any, schema map[string]any, path string, touched *[]string) any {
	typ, _ := schema["type"].(string)
	switch typ {
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		props, _ := schema["properties"].(map[string]any)
		closed := schema["additionalProperties"] == false
		for k, child := range m {
			ps, known := props[k].(map[string]any)
			if !known {
				if closed {
					delete(m, k)
					*touched = append(*touched, path+"."+k+"(unknown)")
				}
				continue
			}
			m[k] = coerce(child, ps, path+"."+k, touched)
		}
		return m
	case "array":
		if v == nil {
			*touched = append(*touched, path+"(null)")
			return []any{}
		}
		items, _ := schema["items"].(map[string]any)
		arr, ok := v.([]any)
		if !ok {
			if items != nil && scalarMatches(v, items) {
				// a lone value where a list was declared
				*touched = append(*touched, path+"(wrapped)")
				return []any{coerce(v, items, path+"[0]", touched)}
			}
			return v
		}
		if items == nil {
			return arr
		}
		for i := range arr {
			arr[i] = coerce(arr[i], items, path+"["+strconv.Itoa(i)+"]", touched)
		}
		return arr
	case "string":
		switch t := v.(type) {
		case float64:
			*touched = append(*touched, path+"(number)")
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			*touched = append(*touched, path+"(bool)")
			return strconv.FormatBool(t)
		}
		return v
	case "boolean":
		s, ok := v.(string)
		if !ok {
			return v
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "sim", "yes":
			*touched = append(*touched, path+"(string)")
			return true
		case "false", "não", "nao", "no":
			*touched = append(*touched, path+"(string)")
			return false
		}
		return v
	}
	return v
}

func scalarMatches(v any, schema map[string]any) bool {
	switch schema["type"] {
	case "string":
		_, ok := v.(string)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}
