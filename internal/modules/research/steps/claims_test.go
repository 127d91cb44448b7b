package steps

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
)

func TestFilterEvidenceIDs(t *testing.T) {
	got := filterEvidenceIDs([]int{2, 0, -1, 2, 5, 3, 99}, 5)
	want := []int{2, 5, 3}
	if len(got) != len(want) {
		t.Fatalf("want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want=%v got=%v", want, got)
		}
	}
}

func TestRunClaimsVerifierFiltersAndDemotes(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, _, schemaName string) (map[string]any, error) {
			if schemaName != "claims_verification_v1" {
				t.Fatalf("unexpected schema name %q", schemaName)
			}
			return map[string]any{
				"claims": []any{
					map[string]any{"text": "Go 1.24 shipped in February.", "evidence_ids": []any{1.0, 1.0, 9.0}, "verified": true},
					map[string]any{"text": "The moon is cheese.", "evidence_ids": []any{7.0}, "verified": true},
					map[string]any{"text": "", "evidence_ids": []any{1.0}, "verified": true},
					map[string]any{"text": "Unsupported aside.", "evidence_ids": []any{}, "verified": false},
				},
			}, nil
		},
	}
	chunks := []research.Chunk{
		mkChunk("https://a", "A", "alpha"),
		mkChunk("https://b", "B", "beta"),
	}
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)

	claims, err := runClaimsVerifier(context.Background(), RespondDeps{AI: ai}, session, "answer text", chunks)
	if err != nil {
		t.Fatalf("runClaimsVerifier: %v", err)
	}
	if len(claims) != 3 {
		t.Fatalf("empty-text claims must drop: got %d claims", len(claims))
	}

	first := claims[0]
	if len(first.EvidenceIDs) != 1 || first.EvidenceIDs[0] != 1 {
		t.Fatalf("ids must dedupe and drop out-of-range: %#v", first.EvidenceIDs)
	}
	if !first.Verified {
		t.Fatalf("claim with valid evidence must stay verified")
	}

	second := claims[1]
	if second.Verified || len(second.EvidenceIDs) != 0 {
		t.Fatalf("claim whose ids all fall out of range must demote: %#v", second)
	}

	third := claims[2]
	if third.Verified {
		t.Fatalf("model-unverified claim must stay unverified")
	}

	for _, c := range claims {
		if c.ID == "" {
			t.Fatalf("claims need ids: %#v", c)
		}
	}
	if len(notify.created) != 1 || notify.created[0].Type != research.BlockTypeClaim {
		t.Fatalf("expected one claim block, got %#v", notify.created)
	}
}

func TestRunClaimsVerifierSkipsWithoutEvidence(t *testing.T) {
	session := newBlockSession(uuid.New(), "m1", nil)
	claims, err := runClaimsVerifier(context.Background(), RespondDeps{AI: &fakeAI{}}, session, "answer", nil)
	if err != nil {
		t.Fatalf("no-evidence run must not error: %v", err)
	}
	if claims != nil {
		t.Fatalf("no claims expected without evidence, got %#v", claims)
	}
}
