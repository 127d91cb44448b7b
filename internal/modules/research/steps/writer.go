package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/openscout/scout-backend/internal/domain/research"
)

// runWriter streams the final answer. The text block is created on the
// first delta and every subsequent delta replaces the block's full data,
// so a client that missed intermediate patches still converges on the
// complete text. Returns the block ID and the full answer.
func runWriter(ctx context.Context, deps RespondDeps, session *blockSession, query string, chunks []research.Chunk, widgetContexts []string) (string, string, error) {
	var (
		blockID string
		full    strings.Builder
	)
	_, err := deps.AI.StreamText(ctx, writerSystemPrompt(), writerUserPrompt(query, chunks, widgetContexts), func(delta string) {
		if delta == "" {
			return
		}
		full.WriteString(delta)
		if blockID == "" {
			block := session.emit(research.BlockTypeText, full.String())
			blockID = block.ID
			return
		}
		session.patch(blockID, research.ReplaceOp("/data", full.String()))
	})
	if err != nil {
		return blockID, full.String(), fmt.Errorf("writer: %w", err)
	}
	if blockID == "" {
		// Model produced nothing; still give the client a block to
		// anchor the answer on.
		block := session.emit(research.BlockTypeText, "")
		blockID = block.ID
	}
	return blockID, full.String(), nil
}

// writerUserPrompt numbers search results starting at 1 so citation ids in
// the answer and in claims line up with evidence positions. Widget results
// are included as background but flagged non-citable.
func writerUserPrompt(query string, chunks []research.Chunk, widgetContexts []string) string {
	var b strings.Builder
	b.WriteString("<query>\n")
	b.WriteString(query)
	b.WriteString("\n</query>\n")

	if len(chunks) > 0 {
		b.WriteString("\n<search_results>\n")
		for i, c := range chunks {
			fmt.Fprintf(&b, "[%d] %s", i+1, defaultString(c.Metadata.Title, c.Metadata.URL))
			if c.Metadata.URL != "" && c.Metadata.Title != "" {
				fmt.Fprintf(&b, " (%s)", c.Metadata.URL)
			}
			b.WriteString("\n")
			b.WriteString(c.Content)
			b.WriteString("\n\n")
		}
		b.WriteString("</search_results>\n")
	}

	if len(widgetContexts) > 0 {
		b.WriteString("\n<widgets_result>\n")
		b.WriteString("The following facts were computed locally. Use them to answer, but never cite them as sources.\n")
		for _, c := range widgetContexts {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("</widgets_result>\n")
	}
	return b.String()
}
