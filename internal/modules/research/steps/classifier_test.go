package steps

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyQueryClampsSourcesToEnabled(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, user, schemaName string) (map[string]any, error) {
			if schemaName != "query_classification_v1" {
				t.Fatalf("unexpected schema name %q", schemaName)
			}
			if !strings.Contains(user, "ENABLED_SOURCES: web, upload") {
				t.Fatalf("enabled sources missing from prompt:\n%s", user)
			}
			return map[string]any{
				"standalone_follow_up": "what changed in go 1.24",
				"skip_search":          false,
				"sources":              []any{"upload", "web", "imaginary", "web"},
			}, nil
		},
	}

	cls, err := classifyQuery(context.Background(), ai, "", []string{"web", "upload"}, "what changed?")
	if err != nil {
		t.Fatalf("classifyQuery: %v", err)
	}
	if len(cls.Sources) != 2 || cls.Sources[0] != "web" || cls.Sources[1] != "upload" {
		t.Fatalf("sources must clamp to the enabled set in enabled order: %#v", cls.Sources)
	}
}

func TestClassifyQueryFallsBackToRawQuery(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, _, _ string) (map[string]any, error) {
			return map[string]any{
				"standalone_follow_up": "   ",
				"skip_search":          true,
				"sources":              []any{},
			}, nil
		},
	}
	cls, err := classifyQuery(context.Background(), ai, "", []string{"web"}, "hello there")
	if err != nil {
		t.Fatalf("classifyQuery: %v", err)
	}
	if cls.StandaloneFollowUp != "hello there" {
		t.Fatalf("blank rewrite must fall back to the query: %q", cls.StandaloneFollowUp)
	}
}

func TestClassifyQueryForcesSkipWhenNoSourcesSurvive(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, _, _ string) (map[string]any, error) {
			return map[string]any{
				"standalone_follow_up": "q",
				"skip_search":          false,
				"sources":              []any{"imaginary"},
			}, nil
		},
	}
	cls, err := classifyQuery(context.Background(), ai, "", []string{"web"}, "q")
	if err != nil {
		t.Fatalf("classifyQuery: %v", err)
	}
	if !cls.SkipSearch {
		t.Fatalf("no surviving sources must force skip_search")
	}
}

func TestClassifyQueryErrorIsFatal(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, _, _ string) (map[string]any, error) {
			return nil, fmt.Errorf("model unavailable")
		},
	}
	if _, err := classifyQuery(context.Background(), ai, "", []string{"web"}, "q"); err == nil {
		t.Fatalf("classifier failure must propagate")
	}
}
