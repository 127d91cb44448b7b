package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/observability"
	"github.com/openscout/scout-backend/internal/platform/openai"
)

func claimsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"claims": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "The claim, quoted or closely paraphrased from the answer.",
						},
						"evidence_ids": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "integer"},
							"description": "1-based indexes into the numbered search results that support this claim.",
						},
						"verified": map[string]any{
							"type":        "boolean",
							"description": "True only when the cited search results actually support the claim.",
						},
					},
					"required":             []string{"text", "evidence_ids", "verified"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"claims"},
		"additionalProperties": false,
	}
}

// runClaimsVerifier extracts checkable claims from the finished answer and
// grades each against the numbered evidence list. Evidence ids outside
// [1, len(chunks)] are dropped, and a claim can only stay verified while it
// retains at least one valid id.
func runClaimsVerifier(ctx context.Context, deps RespondDeps, session *blockSession, answer string, chunks []research.Chunk) ([]research.Claim, error) {
	if answer == "" || len(chunks) == 0 {
		return nil, nil
	}

	raw, err := deps.AI.GenerateJSON(ctx,
		claimsVerifierSystemPrompt(),
		claimsVerifierUserPrompt(answer, chunks),
		"claims_verification_v1",
		claimsSchema(),
		openai.WithTemperature(0),
	)
	if err != nil {
		return nil, fmt.Errorf("claims verifier: %w", err)
	}

	var parsed struct {
		Claims []struct {
			Text        string `json:"text"`
			EvidenceIDs []int  `json:"evidence_ids"`
			Verified    bool   `json:"verified"`
		} `json:"claims"`
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("claims verifier: encode response: %w", err)
	}
	if err := json.Unmarshal(encoded, &parsed); err != nil {
		return nil, fmt.Errorf("claims verifier: decode response: %w", err)
	}

	claims := make([]research.Claim, 0, len(parsed.Claims))
	for _, c := range parsed.Claims {
		if c.Text == "" {
			continue
		}
		ids := filterEvidenceIDs(c.EvidenceIDs, len(chunks))
		claim := research.Claim{
			ID:          uuid.NewString(),
			Text:        c.Text,
			EvidenceIDs: ids,
			Verified:    c.Verified && len(ids) > 0,
		}
		if m := observability.Current(); m != nil {
			m.IncClaimChecked(claim.Verified)
		}
		claims = append(claims, claim)
	}
	if len(claims) == 0 {
		return nil, nil
	}

	session.emit(research.BlockTypeClaim, claims)
	return claims, nil
}

// filterEvidenceIDs dedupes and drops ids outside the 1-based evidence
// range, preserving first-seen order.
func filterEvidenceIDs(ids []int, evidenceCount int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || id > evidenceCount {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func claimsVerifierUserPrompt(answer string, chunks []research.Chunk) string {
	// Re-numbering matches the writer prompt exactly; ids refer to the
	// same positions the client sees in the source block.
	return fmt.Sprintf("<answer>\n%s\n</answer>\n%s", answer, numberedEvidenceList(chunks))
}

func numberedEvidenceList(chunks []research.Chunk) string {
	var b strings.Builder
	b.WriteString("<search_results>\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, defaultString(c.Metadata.Title, c.Metadata.URL), c.Content)
	}
	b.WriteString("</search_results>\n")
	return b.String()
}
