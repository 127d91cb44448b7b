package steps

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/openscout/scout-backend/internal/domain/research"
)

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, []float32{1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosine(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("cosine: want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestMMRSelectPrefersDiversity(t *testing.T) {
	// Two near-duplicates score highest; a slightly weaker but distinct
	// item must beat the duplicate into second place.
	items := []scoredChunk{
		{Chunk: mkChunk("https://a", "A", "a"), Score: 95, Emb: []float32{1, 0}},
		{Chunk: mkChunk("https://a2", "A2", "a2"), Score: 94, Emb: []float32{1, 0.01}},
		{Chunk: mkChunk("https://b", "B", "b"), Score: 70, Emb: []float32{0, 1}},
	}
	selected := mmrSelect(items, 2, mmrLambda)
	if len(selected) != 2 {
		t.Fatalf("selected: want=2 got=%d", len(selected))
	}
	if selected[0].Chunk.Metadata.URL != "https://a" {
		t.Fatalf("first pick must be the top score, got %s", selected[0].Chunk.Metadata.URL)
	}
	if selected[1].Chunk.Metadata.URL != "https://b" {
		t.Fatalf("second pick must be the diverse item, got %s", selected[1].Chunk.Metadata.URL)
	}
}

func TestMMRSelectCapAndEdgeCases(t *testing.T) {
	items := []scoredChunk{
		{Chunk: mkChunk("https://a", "A", "a"), Score: 1, Emb: []float32{1, 0}},
		{Chunk: mkChunk("https://b", "B", "b"), Score: 2, Emb: []float32{0, 1}},
	}
	if got := mmrSelect(items, 5, mmrLambda); len(got) != 2 {
		t.Fatalf("k beyond items must return all: got=%d", len(got))
	}
	if got := mmrSelect(items, 0, mmrLambda); got != nil {
		t.Fatalf("k=0 must return nil, got %#v", got)
	}
	if got := mmrSelect(nil, 3, mmrLambda); got != nil {
		t.Fatalf("empty input must return nil, got %#v", got)
	}
}

func TestRerankChunksUnderCapIsPassthrough(t *testing.T) {
	deps := RespondDeps{Log: mustTestLogger(t), AI: &fakeAI{}}
	chunks := []research.Chunk{
		mkChunk("https://a", "A", "a"),
		mkChunk("https://b", "B", "b"),
	}
	got := rerankChunks(context.Background(), deps, "q", chunks)
	if len(got) != 2 || got[0].Metadata.URL != "https://a" || got[1].Metadata.URL != "https://b" {
		t.Fatalf("under the cap order must be untouched: %#v", got)
	}
}

func TestRerankChunksEmbedFailureTruncates(t *testing.T) {
	deps := RespondDeps{
		Log: mustTestLogger(t),
		AI: &fakeAI{
			embed: func(context.Context, []string) ([][]float32, error) {
				return nil, fmt.Errorf("embeddings down")
			},
		},
	}
	chunks := make([]research.Chunk, maxEvidenceChunks+6)
	for i := range chunks {
		url := fmt.Sprintf("https://s/%d", i)
		chunks[i] = mkChunk(url, "t", "c")
	}
	got := rerankChunks(context.Background(), deps, "q", chunks)
	if len(got) != maxEvidenceChunks {
		t.Fatalf("fallback must truncate to the cap: got=%d", len(got))
	}
	if got[0].Metadata.URL != "https://s/0" {
		t.Fatalf("fallback must keep original order, got %s", got[0].Metadata.URL)
	}
}

func TestRerankChunksSelectsByRelevance(t *testing.T) {
	n := maxEvidenceChunks + 2
	// The last chunk's embedding aligns with the query; everything else
	// is orthogonal, so it must survive the cut.
	deps := RespondDeps{
		Log: mustTestLogger(t),
		AI: &fakeAI{
			embed: func(_ context.Context, inputs []string) ([][]float32, error) {
				out := make([][]float32, len(inputs))
				out[0] = []float32{1, 0}
				for i := 1; i < len(inputs); i++ {
					out[i] = []float32{0, 1}
				}
				out[len(out)-1] = []float32{1, 0.1}
				return out, nil
			},
		},
	}
	chunks := make([]research.Chunk, n)
	for i := range chunks {
		url := fmt.Sprintf("https://s/%d", i)
		chunks[i] = mkChunk(url, "t", "c")
	}
	got := rerankChunks(context.Background(), deps, "q", chunks)
	if len(got) != maxEvidenceChunks {
		t.Fatalf("rerank must return exactly the cap: got=%d", len(got))
	}
	if got[0].Metadata.URL != fmt.Sprintf("https://s/%d", n-1) {
		t.Fatalf("most relevant chunk must rank first, got %s", got[0].Metadata.URL)
	}
}
