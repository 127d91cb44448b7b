package steps

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/platform/openai"
	"github.com/openscout/scout-backend/internal/platform/searxng"
	"github.com/openscout/scout-backend/internal/platform/vectorstore"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// fakeAI scripts the LLM surface per call site. Unset hooks fail the
// calling code path loudly.
type fakeAI struct {
	embed        func(ctx context.Context, inputs []string) ([][]float32, error)
	generateJSON func(system, user, schemaName string) (map[string]any, error)
	generateText func(system, user string) (string, error)
	streamText   func(system, user string, onDelta func(string)) (string, error)
	streamChat   func(req openai.ChatRequest, h openai.ChatStreamHandler) (openai.ChatResult, error)
}

func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.embed == nil {
		return nil, fmt.Errorf("fakeAI: embed not scripted")
	}
	return f.embed(ctx, inputs)
}

func (f *fakeAI) GenerateJSON(_ context.Context, system, user, schemaName string, _ map[string]any, _ ...openai.GenerateOption) (map[string]any, error) {
	if f.generateJSON == nil {
		return nil, fmt.Errorf("fakeAI: generateJSON not scripted")
	}
	return f.generateJSON(system, user, schemaName)
}

func (f *fakeAI) GenerateText(_ context.Context, system, user string) (string, error) {
	if f.generateText == nil {
		return "", fmt.Errorf("fakeAI: generateText not scripted")
	}
	return f.generateText(system, user)
}

func (f *fakeAI) StreamText(_ context.Context, system, user string, onDelta func(string)) (string, error) {
	if f.streamText == nil {
		return "", fmt.Errorf("fakeAI: streamText not scripted")
	}
	return f.streamText(system, user, onDelta)
}

func (f *fakeAI) StreamChat(_ context.Context, req openai.ChatRequest, h openai.ChatStreamHandler) (openai.ChatResult, error) {
	if f.streamChat == nil {
		return openai.ChatResult{}, fmt.Errorf("fakeAI: streamChat not scripted")
	}
	return f.streamChat(req, h)
}

type fakeSearch struct {
	results map[string][]searxng.Result
	err     error
}

func (f *fakeSearch) Search(_ context.Context, query string, _ int) ([]searxng.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeVec struct {
	matches []vectorstore.VectorMatch
	err     error
}

func (f *fakeVec) Upsert(context.Context, string, []vectorstore.Vector) error { return nil }

func (f *fakeVec) QueryMatches(context.Context, string, []float32, int, map[string]any) ([]vectorstore.VectorMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeVec) DeleteIDs(context.Context, string, []string) error { return nil }

// recordingNotifier captures every notification in order.
type recordingNotifier struct {
	mu      sync.Mutex
	created []research.Block
	patched []recordedPatch
	done    []*chat.Message
	failed  []string
}

type recordedPatch struct {
	BlockID string
	Ops     []research.PatchOp
}

func (n *recordingNotifier) BlockCreated(_ uuid.UUID, _ string, block *research.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, *block)
}

func (n *recordingNotifier) BlockPatched(_ uuid.UUID, _ string, blockID string, patches []research.PatchOp) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.patched = append(n.patched, recordedPatch{BlockID: blockID, Ops: patches})
}

func (n *recordingNotifier) MessageDone(_ uuid.UUID, msg *chat.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.done = append(n.done, msg)
}

func (n *recordingNotifier) MessageError(_ uuid.UUID, _ string, errMsg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, errMsg)
}

func (n *recordingNotifier) ChatCreated(*chat.Chat) {}

func (n *recordingNotifier) patchesFor(blockID string) []recordedPatch {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedPatch
	for _, p := range n.patched {
		if p.BlockID == blockID {
			out = append(out, p)
		}
	}
	return out
}

func mkToolCall(id, name, args string) openai.ToolCall {
	tc := openai.ToolCall{ID: id, Type: "function"}
	tc.Function.Name = name
	tc.Function.Arguments = args
	return tc
}

func mkChunk(url, title, content string) research.Chunk {
	return research.Chunk{
		Content: content,
		Metadata: research.ChunkMetadata{
			URL:    url,
			Title:  title,
			Source: SourceWeb,
		},
	}
}
