package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/observability"
	"github.com/openscout/scout-backend/internal/platform/openai"
)

// Source names offered to the classifier and mapped onto tools.
const (
	SourceWeb    = "web"
	SourceUpload = "upload"
)

// Tool names the model may call. The reasoning and done names are
// pseudo-tools: they shape the stream but are never executed.
const (
	toolWebSearch    = "web_search"
	toolUploadSearch = "upload_search"
	toolReasoning    = "reasoning"
	toolDone         = "done"
)

// proposalKind classifies a streamed tool-call name exactly once, at the
// parse boundary. Downstream code switches on the kind instead of
// matching sentinel strings.
type proposalKind int

const (
	proposalTool proposalKind = iota
	proposalReasoning
	proposalDone
)

func classifyProposal(name string) proposalKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case toolReasoning:
		return proposalReasoning
	case toolDone:
		return proposalDone
	default:
		return proposalTool
	}
}

// availableTools returns the callable tool set for this run given the
// classifier's source picks and the uploaded files, plus the two
// pseudo-tools that are always offered.
func availableTools(cls Classification, fileIDs []string) []openai.ToolDefinition {
	tools := []openai.ToolDefinition{
		openai.NewToolDefinition(toolReasoning,
			"Narrate your current thinking to the user before calling other tools. Call with the text of your reasoning.",
			map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"text": map[string]any{"type": "string"},
				},
				"required": []any{"text"},
			}),
		openai.NewToolDefinition(toolDone,
			"Call when you have gathered enough evidence to answer. No arguments.",
			map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           map[string]any{},
			}),
	}

	for _, source := range cls.Sources {
		switch source {
		case SourceWeb:
			tools = append(tools, openai.NewToolDefinition(toolWebSearch,
				"Search the public web. Returns snippets with their source URLs.",
				map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"query":       map[string]any{"type": "string", "description": "Search query"},
						"max_results": map[string]any{"type": "integer", "description": "Results to return (default 8)"},
					},
					"required": []any{"query"},
				}))
		case SourceUpload:
			if len(fileIDs) == 0 {
				continue
			}
			tools = append(tools, openai.NewToolDefinition(toolUploadSearch,
				"Semantic search over the user's uploaded documents. Returns passages with page and region evidence.",
				map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"query": map[string]any{"type": "string", "description": "Search query"},
						"top_k": map[string]any{"type": "integer", "description": "Passages to return (default 8)"},
					},
					"required": []any{"query"},
				}))
		}
	}
	return tools
}

// toolExecutor runs proposed tool calls. One failing call becomes a typed
// error output; it never aborts the iteration.
type toolExecutor struct {
	deps    RespondDeps
	fileIDs []string
	tracker *researchTracker
}

// executeAll fans the calls out concurrently and joins before returning.
// Output order matches call order. Each search call appends its own
// subStep and attaches its own measured duration to it.
func (e *toolExecutor) executeAll(ctx context.Context, calls []research.ToolCall) []research.ActionOutput {
	outputs := make([]research.ActionOutput, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			outputs[i] = e.executeOne(gctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return outputs
}

func (e *toolExecutor) executeOne(ctx context.Context, call research.ToolCall) research.ActionOutput {
	start := time.Now()

	subStepIdx := -1
	if e.tracker != nil {
		if kind, query := subStepForCall(call); kind != "" {
			subStepIdx = e.tracker.appendSubStep(research.SubStep{Kind: kind, Query: query})
		}
	}

	out := e.dispatch(ctx, call)
	elapsed := time.Since(start)

	if subStepIdx >= 0 {
		e.tracker.attachDuration(subStepIdx, elapsed.Milliseconds())
	}
	if metrics := observability.Current(); metrics != nil {
		status := "ok"
		if out.Type == research.ActionOutputError {
			status = "error"
		}
		metrics.ObserveToolExecution(call.Name, status, elapsed)
	}
	return out
}

func subStepForCall(call research.ToolCall) (research.SubStepKind, string) {
	var args struct {
		Query string `json:"query"`
	}
	_ = json.Unmarshal([]byte(call.Arguments), &args)
	switch strings.ToLower(strings.TrimSpace(call.Name)) {
	case toolWebSearch:
		return research.SubStepSearching, args.Query
	case toolUploadSearch:
		return research.SubStepUploadSearching, args.Query
	default:
		return "", ""
	}
}

func (e *toolExecutor) dispatch(ctx context.Context, call research.ToolCall) research.ActionOutput {
	switch strings.ToLower(strings.TrimSpace(call.Name)) {
	case toolWebSearch:
		return e.webSearch(ctx, call)
	case toolUploadSearch:
		return e.uploadSearch(ctx, call)
	default:
		return errorOutput(call.Name, fmt.Errorf("unknown tool %q", call.Name))
	}
}

func (e *toolExecutor) webSearch(ctx context.Context, call research.ToolCall) research.ActionOutput {
	if e.deps.Search == nil {
		return errorOutput(call.Name, fmt.Errorf("web search not configured"))
	}
	var args struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return errorOutput(call.Name, fmt.Errorf("bad arguments: %w", err))
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorOutput(call.Name, fmt.Errorf("query required"))
	}
	if args.MaxResults <= 0 {
		args.MaxResults = 8
	}

	results, err := e.deps.Search.Search(ctx, args.Query, args.MaxResults)
	if err != nil {
		return errorOutput(call.Name, err)
	}

	chunks := make([]research.Chunk, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		chunks = append(chunks, NormalizeChunkEvidence(research.Chunk{
			Content: r.Content,
			Metadata: research.ChunkMetadata{
				URL:    r.URL,
				Title:  r.Title,
				Source: SourceWeb,
			},
		}))
	}
	return research.ActionOutput{
		Type:    research.ActionOutputSearchResults,
		Tool:    call.Name,
		Results: chunks,
	}
}

func (e *toolExecutor) uploadSearch(ctx context.Context, call research.ToolCall) research.ActionOutput {
	if e.deps.Vec == nil || e.deps.AI == nil {
		return errorOutput(call.Name, fmt.Errorf("upload search not configured"))
	}
	if len(e.fileIDs) == 0 {
		return errorOutput(call.Name, fmt.Errorf("no uploaded files in scope"))
	}
	var args struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return errorOutput(call.Name, fmt.Errorf("bad arguments: %w", err))
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorOutput(call.Name, fmt.Errorf("query required"))
	}
	if args.TopK <= 0 {
		args.TopK = 8
	}

	embeddings, err := e.deps.AI.Embed(ctx, []string{args.Query})
	if err != nil {
		return errorOutput(call.Name, fmt.Errorf("embed query: %w", err))
	}
	if len(embeddings) == 0 {
		return errorOutput(call.Name, fmt.Errorf("embed query: empty result"))
	}

	filter := map[string]any{"file_id": map[string]any{"$in": e.fileIDs}}
	matches, err := e.deps.Vec.QueryMatches(ctx, uploadNamespace, embeddings[0], args.TopK, filter)
	if err != nil {
		return errorOutput(call.Name, err)
	}

	chunks := make([]research.Chunk, 0, len(matches))
	for _, m := range matches {
		chunk, ok := chunkFromPayload(m.Payload)
		if !ok {
			continue
		}
		chunks = append(chunks, NormalizeChunkEvidence(chunk))
	}
	return research.ActionOutput{
		Type:    research.ActionOutputSearchResults,
		Tool:    call.Name,
		Results: chunks,
	}
}

// uploadNamespace is the vector store namespace holding ingested upload
// chunks. Ingestion (out of band) writes with the same payload keys read
// back here.
const uploadNamespace = "uploads"

func chunkFromPayload(payload map[string]any) (research.Chunk, bool) {
	content := stringFromPayload(payload, "content")
	if content == "" {
		return research.Chunk{}, false
	}
	fileID := stringFromPayload(payload, "file_id")
	url := stringFromPayload(payload, "url")
	if url == "" && fileID != "" {
		url = "doc:" + fileID
	}
	chunk := research.Chunk{
		Content: content,
		Metadata: research.ChunkMetadata{
			URL:            url,
			Title:          stringFromPayload(payload, "title"),
			Source:         SourceUpload,
			FileID:         fileID,
			Page:           intFromPayload(payload, "page"),
			TotalPages:     intFromPayload(payload, "total_pages"),
			BBox:           floatSliceFromPayload(payload, "bbox"),
			TimecodeStart:  floatFromPayload(payload, "timecode_start"),
			TimecodeEnd:    floatFromPayload(payload, "timecode_end"),
			Timestamp:      floatFromPayload(payload, "timestamp"),
			TimestampStart: floatFromPayload(payload, "timestamp_start"),
			TimestampEnd:   floatFromPayload(payload, "timestamp_end"),
		},
	}
	return chunk, true
}

func errorOutput(tool string, err error) research.ActionOutput {
	return research.ActionOutput{
		Type:  research.ActionOutputError,
		Tool:  tool,
		Error: err.Error(),
	}
}
