package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
)

func TestRunWriterStreamsFullTextReplacements(t *testing.T) {
	ai := &fakeAI{
		streamText: func(_, user string, onDelta func(string)) (string, error) {
			if !strings.Contains(user, "<search_results>") {
				t.Fatalf("writer prompt missing search results:\n%s", user)
			}
			if !strings.Contains(user, "[1] Go 1.24") {
				t.Fatalf("evidence must be numbered from 1:\n%s", user)
			}
			for _, delta := range []string{"Go 1.24 ", "shipped ", "in February."} {
				onDelta(delta)
			}
			return "Go 1.24 shipped in February.", nil
		},
	}
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)
	chunks := []research.Chunk{mkChunk("https://go.dev/blog", "Go 1.24", "release notes")}

	blockID, answer, err := runWriter(context.Background(), RespondDeps{AI: ai}, session, "when did go 1.24 ship", chunks, nil)
	if err != nil {
		t.Fatalf("runWriter: %v", err)
	}
	if answer != "Go 1.24 shipped in February." {
		t.Fatalf("answer: %q", answer)
	}

	// First delta creates the block; each later delta replaces /data with
	// the text so far.
	if len(notify.created) != 1 || notify.created[0].Type != research.BlockTypeText {
		t.Fatalf("expected one text block, got %#v", notify.created)
	}
	patches := notify.patchesFor(blockID)
	if len(patches) != 2 {
		t.Fatalf("expected 2 replacement patches, got %d", len(patches))
	}
	last := patches[len(patches)-1].Ops[0]
	if last.Path != "/data" || last.Value != "Go 1.24 shipped in February." {
		t.Fatalf("final patch must carry the full text: %#v", last)
	}

	if got := session.get(blockID).Data; got != "Go 1.24 shipped in February." {
		t.Fatalf("session state diverged from stream: %v", got)
	}
}

func TestRunWriterEmptyStreamStillProducesBlock(t *testing.T) {
	ai := &fakeAI{
		streamText: func(_, _ string, _ func(string)) (string, error) {
			return "", nil
		},
	}
	session := newBlockSession(uuid.New(), "m1", nil)

	blockID, answer, err := runWriter(context.Background(), RespondDeps{AI: ai}, session, "q", nil, nil)
	if err != nil {
		t.Fatalf("runWriter: %v", err)
	}
	if answer != "" || blockID == "" {
		t.Fatalf("expected empty answer with anchored block: id=%q answer=%q", blockID, answer)
	}
}

func TestWriterUserPromptMarksWidgetsNonCitable(t *testing.T) {
	prompt := writerUserPrompt("q", nil, []string{"Calculator: 6*7 = 42"})
	if !strings.Contains(prompt, "<widgets_result>") {
		t.Fatalf("widget context missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "never cite") {
		t.Fatalf("widget context must be flagged non-citable:\n%s", prompt)
	}
}
