package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openscout/scout-backend/internal/platform/openai"
)

// Classification is the single upfront routing decision for a query.
// Sources is always a subset of the enabled set handed to the classifier;
// the model cannot enable a source the request did not offer.
type Classification struct {
	StandaloneFollowUp string   `json:"standalone_follow_up"`
	SkipSearch         bool     `json:"skip_search"`
	Sources            []string `json:"sources"`
}

// classifyQuery issues one schema-constrained LLM call. A failure here is
// fatal for the whole run: there is no degraded "assume search" fallback.
func classifyQuery(ctx context.Context, ai openai.Client, history string, enabledSources []string, query string) (Classification, error) {
	out := Classification{}
	if ai == nil {
		return out, fmt.Errorf("classifier: llm client required")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return out, fmt.Errorf("classifier: query required")
	}

	sourceEnum := make([]any, 0, len(enabledSources))
	for _, s := range enabledSources {
		s = strings.TrimSpace(s)
		if s != "" {
			sourceEnum = append(sourceEnum, s)
		}
	}

	system := strings.Join([]string{
		"You classify user queries for a research assistant.",
		"Rewrite the query as a standalone question that makes sense without the chat history.",
		"Decide whether answering requires searching at all: greetings, pure arithmetic and",
		"questions fully answered by earlier turns need no search (skip_search=true).",
		"Pick which of the enabled sources are worth searching. Never invent a source",
		"that is not in the enabled list.",
	}, "\n")

	user := strings.Join([]string{
		"CHAT_HISTORY:",
		defaultString(history, "(none)"),
		"",
		"ENABLED_SOURCES: " + defaultString(strings.Join(enabledSources, ", "), "(none)"),
		"",
		"QUERY:",
		query,
	}, "\n")

	sourcesSchema := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	if len(sourceEnum) > 0 {
		sourcesSchema["items"] = map[string]any{"type": "string", "enum": sourceEnum}
	}

	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"standalone_follow_up": map[string]any{"type": "string"},
			"skip_search":          map[string]any{"type": "boolean"},
			"sources":              sourcesSchema,
		},
		"required": []any{"standalone_follow_up", "skip_search", "sources"},
	}

	obj, err := ai.GenerateJSON(ctx, system, user, "query_classification_v1", schema, openai.WithTemperature(0))
	if err != nil {
		return out, fmt.Errorf("classifier: %w", err)
	}
	b, _ := json.Marshal(obj)
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("classifier: bad response shape: %w", err)
	}

	out.StandaloneFollowUp = strings.TrimSpace(out.StandaloneFollowUp)
	if out.StandaloneFollowUp == "" {
		out.StandaloneFollowUp = query
	}
	out.Sources = clampSources(out.Sources, enabledSources)
	if len(out.Sources) == 0 && !out.SkipSearch {
		// Nothing searchable remains even though the model wants a search.
		out.SkipSearch = true
	}
	return out, nil
}

// clampSources intersects the model's picks with the enabled set,
// preserving enabled-set order and dropping duplicates.
func clampSources(picked, enabled []string) []string {
	want := make(map[string]bool, len(picked))
	for _, s := range picked {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}
	out := make([]string, 0, len(enabled))
	for _, s := range enabled {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || !want[key] {
			continue
		}
		out = append(out, key)
		want[key] = false
	}
	return out
}
