package steps

import (
	"strings"

	"github.com/openscout/scout-backend/internal/domain/research"
)

// MergeEvidence concatenates existing and incoming, dropping structural
// duplicates. Order-preserving: the first occurrence of each distinct
// entry wins, so merging a list into itself is a no-op.
func MergeEvidence(existing, incoming []research.Evidence) []research.Evidence {
	out := make([]research.Evidence, 0, len(existing)+len(incoming))
	for _, e := range existing {
		if !containsEvidence(out, e) {
			out = append(out, e)
		}
	}
	for _, e := range incoming {
		if !containsEvidence(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func containsEvidence(list []research.Evidence, e research.Evidence) bool {
	for _, have := range list {
		if have.Equal(e) {
			return true
		}
	}
	return false
}

// NormalizeChunkEvidence lifts flat metadata evidence fields (page, bbox,
// timecodes, the legacy single timestamp) into one synthesized Evidence
// entry and merges it into the chunk's evidence list. Idempotent.
func NormalizeChunkEvidence(c research.Chunk) research.Chunk {
	synth := research.Evidence{
		Page:          c.Metadata.Page,
		TotalPages:    c.Metadata.TotalPages,
		BBox:          c.Metadata.BBox,
		TimecodeStart: c.Metadata.TimecodeStart,
		TimecodeEnd:   c.Metadata.TimecodeEnd,
		TimestampEnd:  c.Metadata.TimestampEnd,
	}
	switch {
	case c.Metadata.TimestampStart != nil:
		synth.TimestampStart = c.Metadata.TimestampStart
	case c.Metadata.Timestamp != nil:
		synth.TimestampStart = c.Metadata.Timestamp
	}

	if synth.Empty() {
		c.Evidence = MergeEvidence(c.Evidence, nil)
		return c
	}
	c.Evidence = MergeEvidence(c.Evidence, []research.Evidence{synth})
	return c
}

// DedupeChunksByURL merges chunks that point at the same source URL: the
// first occurrence absorbs later ones by newline-joining content and
// union-merging evidence. Chunks without a URL pass through untouched.
func DedupeChunksByURL(chunks []research.Chunk) []research.Chunk {
	out := make([]research.Chunk, 0, len(chunks))
	byURL := make(map[string]int)

	for _, c := range chunks {
		url := strings.TrimSpace(c.Metadata.URL)
		if url == "" {
			out = append(out, c)
			continue
		}
		if idx, seen := byURL[url]; seen {
			first := &out[idx]
			if c.Content != "" {
				if first.Content != "" {
					first.Content += "\n" + c.Content
				} else {
					first.Content = c.Content
				}
			}
			first.Evidence = MergeEvidence(first.Evidence, c.Evidence)
			continue
		}
		byURL[url] = len(out)
		out = append(out, c)
	}
	return out
}
