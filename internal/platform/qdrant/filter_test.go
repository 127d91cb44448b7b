package qdrant

import (
	"errors"
	"reflect"
	"testing"
)

func mustTranslate(t *testing.T, filter map[string]any) translatedFilter {
	t.Helper()
	out, err := translateFilterMap(filter)
	if err != nil {
		t.Fatalf("translateFilterMap: %v", err)
	}
	return out
}

func opCode(t *testing.T, err error) OperationErrorCode {
	t.Helper()
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OperationError, got %T: %v", err, err)
	}
	return opErr.Code
}

func TestTranslateFilterMapScalarEquality(t *testing.T) {
	out := mustTranslate(t, map[string]any{"file_id": "f1"})
	want := []any{
		map[string]any{"key": "file_id", "match": map[string]any{"value": "f1"}},
	}
	if !reflect.DeepEqual(out.Must, want) {
		t.Fatalf("must: want=%#v got=%#v", want, out.Must)
	}
	if len(out.MustNot) != 0 {
		t.Fatalf("must_not must stay empty: %#v", out.MustNot)
	}
}

func TestTranslateFilterMapOperators(t *testing.T) {
	out := mustTranslate(t, map[string]any{
		"source": map[string]any{"$eq": "web"},
		"status": map[string]any{"$ne": "deleted"},
		"file_id": map[string]any{
			"$in": []string{"f1", "f2"},
		},
	})

	wantMust := []any{
		map[string]any{"key": "file_id", "match": map[string]any{"any": []any{"f1", "f2"}}},
		map[string]any{"key": "source", "match": map[string]any{"value": "web"}},
	}
	if !reflect.DeepEqual(out.Must, wantMust) {
		t.Fatalf("must: want=%#v got=%#v", wantMust, out.Must)
	}
	wantMustNot := []any{
		map[string]any{"key": "status", "match": map[string]any{"value": "deleted"}},
	}
	if !reflect.DeepEqual(out.MustNot, wantMustNot) {
		t.Fatalf("must_not: want=%#v got=%#v", wantMustNot, out.MustNot)
	}
}

func TestTranslateFilterMapDeterministicFieldOrder(t *testing.T) {
	filter := map[string]any{"b": "2", "a": "1", "c": "3"}
	first := mustTranslate(t, filter)
	for i := 0; i < 10; i++ {
		again := mustTranslate(t, filter)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("translation must be deterministic: %#v vs %#v", first, again)
		}
	}
}

func TestTranslateFilterMapRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		filter map[string]any
		code   OperationErrorCode
	}{
		{"top-level operator", map[string]any{"$or": []any{}}, OperationErrorUnsupportedFilter},
		{"unknown operator", map[string]any{"f": map[string]any{"$gt": 1}}, OperationErrorUnsupportedFilter},
		{"empty operator map", map[string]any{"f": map[string]any{}}, OperationErrorValidation},
		{"non-scalar value", map[string]any{"f": []byte("x")}, OperationErrorValidation},
		{"empty $in", map[string]any{"f": map[string]any{"$in": []string{}}}, OperationErrorValidation},
		{"non-array $in", map[string]any{"f": map[string]any{"$in": "x"}}, OperationErrorValidation},
		{"non-scalar $eq", map[string]any{"f": map[string]any{"$eq": []any{map[string]any{}}}}, OperationErrorValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := translateFilterMap(tc.filter)
			if err == nil {
				t.Fatalf("expected error for %#v", tc.filter)
			}
			if got := opCode(t, err); got != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, got)
			}
		})
	}
}

func TestTranslateFilterMapEmptyIsNoop(t *testing.T) {
	out := mustTranslate(t, nil)
	if len(out.Must) != 0 || len(out.MustNot) != 0 {
		t.Fatalf("empty filter must translate to nothing: %#v", out)
	}
	if m := out.asMap(); len(m) != 0 {
		t.Fatalf("asMap for empty filter must be empty: %#v", m)
	}
}
