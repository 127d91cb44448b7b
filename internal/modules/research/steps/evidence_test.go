package steps

import (
	"testing"

	"github.com/openscout/scout-backend/internal/domain/research"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestMergeEvidenceDropsStructuralDuplicates(t *testing.T) {
	a := research.Evidence{Page: intPtr(2), BBox: []float64{0, 0, 1, 1}}
	b := research.Evidence{Page: intPtr(3)}

	got := MergeEvidence([]research.Evidence{a}, []research.Evidence{b, a, b})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %#v", len(got), got)
	}
	if !got[0].Equal(a) || !got[1].Equal(b) {
		t.Fatalf("order not preserved: %#v", got)
	}
}

func TestMergeEvidenceSelfMergeIsNoop(t *testing.T) {
	list := []research.Evidence{
		{Page: intPtr(1)},
		{TimecodeStart: floatPtr(12.5), TimecodeEnd: floatPtr(19.0)},
	}
	got := MergeEvidence(list, list)
	if len(got) != len(list) {
		t.Fatalf("self-merge grew the list: %d -> %d", len(list), len(got))
	}
}

func TestNormalizeChunkEvidenceSynthesizesFromMetadata(t *testing.T) {
	c := research.Chunk{
		Content: "passage",
		Metadata: research.ChunkMetadata{
			URL:  "doc:f1",
			Page: intPtr(4),
			BBox: []float64{0.1, 0.2, 0.8, 0.9},
		},
	}
	got := NormalizeChunkEvidence(c)
	if len(got.Evidence) != 1 {
		t.Fatalf("expected one synthesized entry, got %d", len(got.Evidence))
	}
	if got.Evidence[0].Page == nil || *got.Evidence[0].Page != 4 {
		t.Fatalf("page not lifted: %#v", got.Evidence[0])
	}

	again := NormalizeChunkEvidence(got)
	if len(again.Evidence) != 1 {
		t.Fatalf("normalization not idempotent: %d entries", len(again.Evidence))
	}
}

func TestNormalizeChunkEvidencePrefersTimestampStartOverLegacy(t *testing.T) {
	c := research.Chunk{
		Content: "line",
		Metadata: research.ChunkMetadata{
			Timestamp:      floatPtr(10),
			TimestampStart: floatPtr(42),
		},
	}
	got := NormalizeChunkEvidence(c)
	if len(got.Evidence) != 1 || got.Evidence[0].TimestampStart == nil || *got.Evidence[0].TimestampStart != 42 {
		t.Fatalf("expected timestamp_start=42, got %#v", got.Evidence)
	}
}

func TestNormalizeChunkEvidenceSkipsEmptySynthesis(t *testing.T) {
	c := research.Chunk{Content: "plain web snippet", Metadata: research.ChunkMetadata{URL: "https://x"}}
	got := NormalizeChunkEvidence(c)
	if len(got.Evidence) != 0 {
		t.Fatalf("expected no evidence for flat web chunk, got %#v", got.Evidence)
	}
}

func TestDedupeChunksByURLJoinsContentAndUnionsEvidence(t *testing.T) {
	e1 := research.Evidence{Page: intPtr(1)}
	e2 := research.Evidence{Page: intPtr(2)}

	chunks := []research.Chunk{
		{Content: "first", Metadata: research.ChunkMetadata{URL: "https://a"}, Evidence: []research.Evidence{e1}},
		{Content: "other", Metadata: research.ChunkMetadata{URL: "https://b"}},
		{Content: "second", Metadata: research.ChunkMetadata{URL: "https://a"}, Evidence: []research.Evidence{e1, e2}},
	}
	got := DedupeChunksByURL(chunks)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Content != "first\nsecond" {
		t.Fatalf("content not joined: %q", got[0].Content)
	}
	if len(got[0].Evidence) != 2 {
		t.Fatalf("evidence not unioned: %#v", got[0].Evidence)
	}
	if got[1].Metadata.URL != "https://b" {
		t.Fatalf("order not preserved: %#v", got[1].Metadata)
	}
}

func TestDedupeChunksByURLPassesThroughURLless(t *testing.T) {
	chunks := []research.Chunk{
		{Content: "a"},
		{Content: "b"},
	}
	got := DedupeChunksByURL(chunks)
	if len(got) != 2 {
		t.Fatalf("url-less chunks must not merge, got %d", len(got))
	}
}
