package steps

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/platform/openai"
	"github.com/openscout/scout-backend/internal/platform/searxng"
)

func TestResearchTrackerAttachDurationIsOneShot(t *testing.T) {
	session := newBlockSession(uuid.New(), "m1", nil)
	tracker := newResearchTracker(session)

	idx := tracker.appendSubStep(research.SubStep{Kind: research.SubStepSearching, Query: "q"})
	tracker.attachDuration(idx, 120)
	tracker.attachDuration(idx, 999)

	data := session.get(tracker.blockID).Data.(research.ResearchData)
	if data.SubSteps[idx].DurationMs == nil || *data.SubSteps[idx].DurationMs != 120 {
		t.Fatalf("duration must keep first value, got %#v", data.SubSteps[idx].DurationMs)
	}
}

func TestResearchTrackerIgnoresOutOfRangeIndex(t *testing.T) {
	session := newBlockSession(uuid.New(), "m1", nil)
	tracker := newResearchTracker(session)

	tracker.attachDuration(-1, 5)
	tracker.attachDuration(3, 5)
	tracker.updateSubStepText(7, "x")

	data := session.get(tracker.blockID).Data.(research.ResearchData)
	if len(data.SubSteps) != 0 {
		t.Fatalf("no sub steps expected, got %#v", data.SubSteps)
	}
}

func researcherDeps(ai *fakeAI, search searxng.Client) RespondDeps {
	return RespondDeps{AI: ai, Search: search}
}

func TestRunResearcherSearchThenDone(t *testing.T) {
	calls := 0
	ai := &fakeAI{
		streamChat: func(req openai.ChatRequest, h openai.ChatStreamHandler) (openai.ChatResult, error) {
			calls++
			switch calls {
			case 1:
				if h.OnToolCall != nil {
					h.OnToolCall(openai.ToolCallChunk{Index: 0, ID: "c1", Name: toolReasoning, ArgumentsDelta: `{"text":"Looking at rel`})
					h.OnToolCall(openai.ToolCallChunk{Index: 0, ArgumentsDelta: `eases"}`})
					h.OnToolCall(openai.ToolCallChunk{Index: 1, ID: "c2", Name: toolWebSearch, ArgumentsDelta: `{"query":"go 1.24 release"}`})
				}
				return openai.ChatResult{
					ToolCalls: []openai.ToolCall{
						mkToolCall("c1", toolReasoning, `{"text":"Looking at releases"}`),
						mkToolCall("c2", toolWebSearch, `{"query":"go 1.24 release"}`),
					},
					FinishReason: "tool_calls",
				}, nil
			default:
				// The second call must replay the first exchange.
				sawToolResult := false
				for _, m := range req.Messages {
					if m.Role == "tool" && m.ToolCallID == "c2" {
						sawToolResult = true
					}
				}
				if !sawToolResult {
					t.Fatalf("second iteration missing tool result for c2")
				}
				return openai.ChatResult{
					ToolCalls:    []openai.ToolCall{mkToolCall("c3", toolDone, `{}`)},
					FinishReason: "tool_calls",
				}, nil
			}
		},
	}
	search := &fakeSearch{results: map[string][]searxng.Result{
		"go 1.24 release": {
			{URL: "https://go.dev/blog", Title: "Go 1.24", Content: "Go 1.24 ships generics improvements."},
			{URL: "https://go.dev/blog", Title: "Go 1.24", Content: "Tooling got faster."},
		},
	}}

	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)
	cls := Classification{StandaloneFollowUp: "what's new in go 1.24", Sources: []string{SourceWeb}}

	run, err := runResearcher(context.Background(), researcherDeps(ai, search), session, cls, ModeBalanced, nil)
	if err != nil {
		t.Fatalf("runResearcher: %v", err)
	}
	if run.Iterations != 2 {
		t.Fatalf("iterations: want=2 got=%d", run.Iterations)
	}
	if len(run.Chunks) != 1 {
		t.Fatalf("same-URL results must merge into one chunk, got %d", len(run.Chunks))
	}
	if run.Chunks[0].Content != "Go 1.24 ships generics improvements.\nTooling got faster." {
		t.Fatalf("merged content wrong: %q", run.Chunks[0].Content)
	}

	snap := session.snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected research + source blocks, got %d", len(snap))
	}
	data := snap[0].Data.(research.ResearchData)
	if data.Phase != research.PhaseSynthesis {
		t.Fatalf("phase must end at synthesis, got %s", data.Phase)
	}
	if len(data.SubSteps) != 2 {
		t.Fatalf("expected reasoning + searching sub steps, got %#v", data.SubSteps)
	}
	if data.SubSteps[0].Kind != research.SubStepReasoning || data.SubSteps[0].Text != "Looking at releases" {
		t.Fatalf("reasoning sub step wrong: %#v", data.SubSteps[0])
	}
	if data.SubSteps[1].Kind != research.SubStepSearching || data.SubSteps[1].DurationMs == nil {
		t.Fatalf("searching sub step needs a duration: %#v", data.SubSteps[1])
	}
	if snap[1].Type != research.BlockTypeSource {
		t.Fatalf("second block must be the source block, got %s", snap[1].Type)
	}
}

func TestRunResearcherStopsAtIterationCap(t *testing.T) {
	calls := 0
	ai := &fakeAI{
		streamChat: func(_ openai.ChatRequest, _ openai.ChatStreamHandler) (openai.ChatResult, error) {
			calls++
			return openai.ChatResult{
				ToolCalls:    []openai.ToolCall{mkToolCall("c", toolWebSearch, `{"query":"endless"}`)},
				FinishReason: "tool_calls",
			}, nil
		},
	}
	search := &fakeSearch{results: map[string][]searxng.Result{}}
	session := newBlockSession(uuid.New(), "m1", nil)
	cls := Classification{StandaloneFollowUp: "q", Sources: []string{SourceWeb}}

	run, err := runResearcher(context.Background(), researcherDeps(ai, search), session, cls, ModeSpeed, nil)
	if err != nil {
		t.Fatalf("runResearcher: %v", err)
	}
	if calls != 2 || run.Iterations != 2 {
		t.Fatalf("speed mode must stop after 2 iterations: calls=%d iterations=%d", calls, run.Iterations)
	}
}

func TestRunResearcherZeroCallsTerminates(t *testing.T) {
	ai := &fakeAI{
		streamChat: func(_ openai.ChatRequest, _ openai.ChatStreamHandler) (openai.ChatResult, error) {
			return openai.ChatResult{Content: "no tools needed", FinishReason: "stop"}, nil
		},
	}
	session := newBlockSession(uuid.New(), "m1", nil)
	cls := Classification{StandaloneFollowUp: "q", Sources: []string{SourceWeb}}

	run, err := runResearcher(context.Background(), researcherDeps(ai, &fakeSearch{}), session, cls, ModeQuality, nil)
	if err != nil {
		t.Fatalf("runResearcher: %v", err)
	}
	if run.Iterations != 1 || len(run.Outputs) != 0 {
		t.Fatalf("zero-call iteration must terminate immediately: %+v", run)
	}
	for _, b := range session.snapshot() {
		if b.Type == research.BlockTypeSource {
			t.Fatalf("no source block expected with no chunks")
		}
	}
}

func TestRunResearcherDiscardsTrailingDoneProposals(t *testing.T) {
	ai := &fakeAI{
		streamChat: func(_ openai.ChatRequest, _ openai.ChatStreamHandler) (openai.ChatResult, error) {
			return openai.ChatResult{
				ToolCalls: []openai.ToolCall{
					mkToolCall("c1", toolWebSearch, `{"query":"q"}`),
					mkToolCall("c2", toolDone, `{}`),
				},
				FinishReason: "tool_calls",
			}, nil
		},
	}
	session := newBlockSession(uuid.New(), "m1", nil)
	cls := Classification{StandaloneFollowUp: "q", Sources: []string{SourceWeb}}

	run, err := runResearcher(context.Background(), researcherDeps(ai, &fakeSearch{}), session, cls, ModeQuality, nil)
	if err != nil {
		t.Fatalf("runResearcher: %v", err)
	}
	if len(run.Outputs) != 0 {
		t.Fatalf("calls proposed alongside a trailing done must not execute: %#v", run.Outputs)
	}
	if run.Iterations != 1 {
		t.Fatalf("iterations: want=1 got=%d", run.Iterations)
	}
}
