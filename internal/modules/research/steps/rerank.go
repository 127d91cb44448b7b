package steps

import (
	"context"
	"math"
	"sort"

	"github.com/openscout/scout-backend/internal/domain/research"
)

// maxEvidenceChunks caps what reaches the writer and the source block.
// Under the cap the deduplicated order is kept as-is; over it, chunks are
// embedded and MMR-selected for relevance with diversity.
const maxEvidenceChunks = 24

const mmrLambda = 0.7

// rerankChunks is best-effort: any embedding failure falls back to a
// simple truncation so the run never dies on ranking.
func rerankChunks(ctx context.Context, deps RespondDeps, query string, chunks []research.Chunk) []research.Chunk {
	if len(chunks) <= maxEvidenceChunks {
		return chunks
	}
	if deps.AI == nil {
		return chunks[:maxEvidenceChunks]
	}

	inputs := make([]string, 0, len(chunks)+1)
	inputs = append(inputs, query)
	for _, c := range chunks {
		inputs = append(inputs, c.Content)
	}
	embeddings, err := deps.AI.Embed(ctx, inputs)
	if err != nil || len(embeddings) != len(inputs) {
		if deps.Log != nil {
			deps.Log.Warn("chunk rerank skipped", "error", err)
		}
		return chunks[:maxEvidenceChunks]
	}

	queryEmb := embeddings[0]
	items := make([]scoredChunk, len(chunks))
	for i := range chunks {
		items[i] = scoredChunk{
			Chunk: chunks[i],
			Score: cosine(queryEmb, embeddings[i+1]) * 100.0,
			Emb:   embeddings[i+1],
		}
	}

	selected := mmrSelect(items, maxEvidenceChunks, mmrLambda)
	out := make([]research.Chunk, len(selected))
	for i, s := range selected {
		out[i] = s.Chunk
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type scoredChunk struct {
	Chunk research.Chunk
	Score float64
	Emb   []float32
}

func mmrSelect(items []scoredChunk, k int, lambda float64) []scoredChunk {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	if lambda <= 0 {
		lambda = 0.5
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	selected := make([]scoredChunk, 0, k)
	used := make([]bool, len(items))

	selected = append(selected, items[0])
	used[0] = true

	for len(selected) < k {
		bestIdx := -1
		bestVal := -1e12

		for i := range items {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				sim := cosine(items[i].Emb, s.Emb)
				if sim > maxSim {
					maxSim = sim
				}
			}
			val := lambda*items[i].Score - (1.0-lambda)*maxSim*100.0
			if val > bestVal {
				bestVal = val
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, items[bestIdx])
	}

	return selected
}
