package steps

import (
	"encoding/json"
	"strings"
)

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func stringFromPayload(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intFromPayload(payload map[string]any, key string) *int {
	switch v := payload[key].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n := int(i)
			return &n
		}
	}
	return nil
}

func floatFromPayload(payload map[string]any, key string) *float64 {
	switch v := payload[key].(type) {
	case float64:
		f := v
		return &f
	case int:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			out := f
			return &out
		}
	}
	return nil
}

func floatSliceFromPayload(payload map[string]any, key string) []float64 {
	raw, ok := payload[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		default:
			return nil
		}
	}
	return out
}

// extractPartialText pulls the value of a "text" string field out of a
// possibly incomplete JSON object, for live-updating reasoning subSteps
// while argument fragments are still streaming. Best effort: returns ""
// until the field opens.
func extractPartialText(partialJSON string) string {
	const marker = `"text"`
	idx := strings.Index(partialJSON, marker)
	if idx < 0 {
		return ""
	}
	rest := partialJSON[idx+len(marker):]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return ""
	}
	rest = strings.TrimLeft(rest[colon+1:], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return ""
	}
	rest = rest[1:]

	var b strings.Builder
	escaped := false
	for _, r := range rest {
		if escaped {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case '"', '\\', '/':
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if r == '"' {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TitleFromQuery shortens a query into a chat title.
func TitleFromQuery(query string) string {
	query = strings.TrimSpace(query)
	const max = 80
	if len(query) <= max {
		return query
	}
	cut := query[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
