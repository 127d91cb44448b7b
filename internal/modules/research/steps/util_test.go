package steps

import (
	"strings"
	"testing"
)

func TestExtractPartialText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"te`, ""},
		{`{"text"`, ""},
		{`{"text":`, ""},
		{`{"text": "Check`, "Check"},
		{`{"text": "Checking the Go release notes`, "Checking the Go release notes"},
		{`{"text": "done"}`, "done"},
		{`{"text": "line\nbreak"}`, "line\nbreak"},
		{`{"text": "quote \" inside"}`, `quote " inside`},
	}
	for _, c := range cases {
		if got := extractPartialText(c.in); got != c.want {
			t.Fatalf("extractPartialText(%q): want=%q got=%q", c.in, c.want, got)
		}
	}
}

func TestTitleFromQuery(t *testing.T) {
	if got := TitleFromQuery("  short question  "); got != "short question" {
		t.Fatalf("short query should pass through trimmed, got %q", got)
	}

	long := strings.Repeat("word ", 30)
	got := TitleFromQuery(long)
	if len(got) > 84 {
		t.Fatalf("title too long: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated title needs ellipsis: %q", got)
	}
	if !strings.HasSuffix(strings.TrimSuffix(got, "..."), "word") {
		t.Fatalf("truncation must land on a word boundary: %q", got)
	}
}
