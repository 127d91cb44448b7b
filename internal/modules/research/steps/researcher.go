package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/platform/openai"
)

// researchTracker owns the research block for one run: the phase and the
// ordered subStep list. Tool executions append and mutate subSteps from
// concurrent goroutines, so updates are serialized here and forwarded as
// patches against the block.
type researchTracker struct {
	mu      sync.Mutex
	session *blockSession
	blockID string
	data    research.ResearchData
}

func newResearchTracker(session *blockSession) *researchTracker {
	data := research.ResearchData{
		Phase:    research.PhaseAnalysis,
		SubSteps: []research.SubStep{},
	}
	block := session.emit(research.BlockTypeResearch, data)
	return &researchTracker{session: session, blockID: block.ID, data: data}
}

// appendSubStep adds a subStep and returns its index so the caller can
// attach a duration to that exact step later.
func (t *researchTracker) appendSubStep(s research.SubStep) int {
	t.mu.Lock()
	t.data.SubSteps = append(t.data.SubSteps, s)
	idx := len(t.data.SubSteps) - 1
	steps := t.subStepsLocked()
	t.mu.Unlock()

	t.session.patch(t.blockID, research.ReplaceOp("/data/sub_steps", steps))
	return idx
}

func (t *researchTracker) updateSubStepText(idx int, text string) {
	t.mu.Lock()
	if idx < 0 || idx >= len(t.data.SubSteps) || t.data.SubSteps[idx].Text == text {
		t.mu.Unlock()
		return
	}
	t.data.SubSteps[idx].Text = text
	steps := t.subStepsLocked()
	t.mu.Unlock()

	t.session.patch(t.blockID, research.ReplaceOp("/data/sub_steps", steps))
}

// attachDuration sets DurationMs once; an already-set duration is never
// overwritten.
func (t *researchTracker) attachDuration(idx int, ms int64) {
	t.mu.Lock()
	if idx < 0 || idx >= len(t.data.SubSteps) || t.data.SubSteps[idx].DurationMs != nil {
		t.mu.Unlock()
		return
	}
	t.data.SubSteps[idx].DurationMs = &ms
	steps := t.subStepsLocked()
	t.mu.Unlock()

	t.session.patch(t.blockID, research.ReplaceOp("/data/sub_steps", steps))
}

func (t *researchTracker) setPhase(phase research.ResearchPhase) {
	t.mu.Lock()
	t.data.Phase = phase
	t.mu.Unlock()

	t.session.patch(t.blockID, research.ReplaceOp("/data/phase", phase))
}

func (t *researchTracker) subStepsLocked() []research.SubStep {
	out := make([]research.SubStep, len(t.data.SubSteps))
	copy(out, t.data.SubSteps)
	return out
}

type researchRun struct {
	Outputs    []research.ActionOutput
	Chunks     []research.Chunk
	Iterations int
}

// runResearcher drives the bounded tool-calling loop. Iterations are
// strictly sequential; the calls proposed within one iteration execute
// concurrently. Hitting the iteration cap is a normal terminal state.
func runResearcher(ctx context.Context, deps RespondDeps, session *blockSession, cls Classification, mode Mode, fileIDs []string) (researchRun, error) {
	run := researchRun{}
	tracker := newResearchTracker(session)
	tools := availableTools(cls, fileIDs)
	executor := &toolExecutor{deps: deps, fileIDs: fileIDs, tracker: tracker}

	maxIterations := mode.MaxIterations()
	base := []openai.Message{
		{Role: "system", Content: researcherSystemPrompt()},
		{Role: "user", Content: cls.StandaloneFollowUp},
	}
	var history []openai.Message

	for iteration := 0; iteration < maxIterations; iteration++ {
		run.Iterations = iteration + 1

		messages := make([]openai.Message, 0, len(base)+len(history)+1)
		messages = append(messages, base...)
		messages = append(messages, history...)
		messages = append(messages, openai.Message{
			Role: "user",
			Content: fmt.Sprintf(
				"Iteration %d of %d. %d iteration(s) remain after this one. Propose tool calls, or call %s if you have enough evidence.",
				iteration+1, maxIterations, maxIterations-iteration-1, toolDone,
			),
		})

		stream := newProposalStream(tracker)
		result, err := deps.AI.StreamChat(ctx, openai.ChatRequest{
			Messages: messages,
			Tools:    tools,
		}, openai.ChatStreamHandler{OnToolCall: stream.onChunk})
		if err != nil {
			return run, fmt.Errorf("researcher iteration %d: %w", iteration+1, err)
		}

		realCalls, lastKind := partitionProposals(result.ToolCalls, tracker, stream)

		// Zero real calls or an explicit done ends the loop; this
		// iteration's proposals are discarded, not executed.
		if len(realCalls) == 0 || lastKind == proposalDone {
			break
		}

		history = append(history, assistantMessage(result))
		outputs := executor.executeAll(ctx, realCalls)
		run.Outputs = append(run.Outputs, outputs...)
		history = append(history, toolResultMessages(result.ToolCalls, realCalls, outputs)...)
	}

	tracker.setPhase(research.PhaseSynthesis)

	chunks := make([]research.Chunk, 0)
	for _, out := range run.Outputs {
		if out.Type != research.ActionOutputSearchResults {
			continue
		}
		for _, c := range out.Results {
			chunks = append(chunks, NormalizeChunkEvidence(c))
		}
	}
	chunks = DedupeChunksByURL(chunks)
	chunks = rerankChunks(ctx, deps, cls.StandaloneFollowUp, chunks)
	run.Chunks = chunks

	if len(chunks) > 0 {
		session.emit(research.BlockTypeSource, chunks)
	}
	return run, nil
}

// proposalStream watches streamed tool-call fragments. Reasoning
// fragments surface live as a single subStep, created on first sight and
// updated in place as more argument text arrives.
type proposalStream struct {
	mu           sync.Mutex
	tracker      *researchTracker
	namesByIndex map[int]string
	argsByIndex  map[int]*strings.Builder
	reasoningIdx map[int]int
}

func newProposalStream(tracker *researchTracker) *proposalStream {
	return &proposalStream{
		tracker:      tracker,
		namesByIndex: map[int]string{},
		argsByIndex:  map[int]*strings.Builder{},
		reasoningIdx: map[int]int{},
	}
}

func (p *proposalStream) onChunk(chunk openai.ToolCallChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if chunk.Name != "" {
		p.namesByIndex[chunk.Index] = chunk.Name
	}
	acc, ok := p.argsByIndex[chunk.Index]
	if !ok {
		acc = &strings.Builder{}
		p.argsByIndex[chunk.Index] = acc
	}
	acc.WriteString(chunk.ArgumentsDelta)

	if classifyProposal(p.namesByIndex[chunk.Index]) != proposalReasoning {
		return
	}
	subStep, seen := p.reasoningIdx[chunk.Index]
	if !seen {
		subStep = p.tracker.appendSubStep(research.SubStep{Kind: research.SubStepReasoning})
		p.reasoningIdx[chunk.Index] = subStep
	}
	if text := extractPartialText(acc.String()); text != "" {
		p.tracker.updateSubStepText(subStep, text)
	}
}

func (p *proposalStream) reasoningSubStep(index int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.reasoningIdx[index]
	return idx, ok
}

// partitionProposals classifies each completed call exactly once and
// returns the executable ones in order, plus the kind of the last call.
// Reasoning calls get their final text applied to the subStep the stream
// created.
func partitionProposals(calls []openai.ToolCall, tracker *researchTracker, stream *proposalStream) ([]research.ToolCall, proposalKind) {
	real := make([]research.ToolCall, 0, len(calls))
	lastKind := proposalTool
	for i, call := range calls {
		kind := classifyProposal(call.Function.Name)
		if i == len(calls)-1 {
			lastKind = kind
		}
		switch kind {
		case proposalReasoning:
			var args struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err == nil && args.Text != "" {
				if subStep, ok := stream.reasoningSubStep(i); ok {
					tracker.updateSubStepText(subStep, args.Text)
				}
			}
		case proposalDone:
			// handled by the caller via lastKind
		default:
			real = append(real, research.ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
	}
	return real, lastKind
}

func assistantMessage(result openai.ChatResult) openai.Message {
	return openai.Message{
		Role:      "assistant",
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
	}
}

// toolResultMessages produces one tool-role message per proposed call, in
// proposal order, so the next model call sees a well-formed exchange.
// Pseudo-tools get acknowledgement stubs.
func toolResultMessages(all []openai.ToolCall, real []research.ToolCall, outputs []research.ActionOutput) []openai.Message {
	outputByID := make(map[string]research.ActionOutput, len(real))
	for i, call := range real {
		if i < len(outputs) {
			outputByID[call.ID] = outputs[i]
		}
	}

	msgs := make([]openai.Message, 0, len(all))
	for _, call := range all {
		content := ""
		if out, ok := outputByID[call.ID]; ok {
			raw, err := json.Marshal(out)
			if err != nil {
				content = fmt.Sprintf(`{"type":"error","error":%q}`, err.Error())
			} else {
				content = string(raw)
			}
		} else {
			content = `{"acknowledged":true}`
		}
		msgs = append(msgs, openai.Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Content:    content,
		})
	}
	return msgs
}
