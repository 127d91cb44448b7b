package research

type BlockType string

const (
	BlockTypeText     BlockType = "text"
	BlockTypeResearch BlockType = "research"
	BlockTypeSource   BlockType = "source"
	BlockTypeWidget   BlockType = "widget"
	BlockTypeClaim    BlockType = "claim"
)

// Block is one streamable unit of a response. A block is emitted once and
// then mutated in place via patch operations; clients never see a block
// replaced wholesale.
type Block struct {
	ID   string    `json:"id"`
	Type BlockType `json:"type"`
	Data any       `json:"data"`
}

// PatchOp mutates a field inside a block's data. Op is always "replace";
// Path addresses a field relative to the block (e.g. "/data" or
// "/data/phase").
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func ReplaceOp(path string, value any) PatchOp {
	return PatchOp{Op: "replace", Path: path, Value: value}
}

type ResearchPhase string

const (
	PhaseAnalysis  ResearchPhase = "analysis"
	PhaseSynthesis ResearchPhase = "synthesis"
)

type SubStepKind string

const (
	SubStepReasoning       SubStepKind = "reasoning"
	SubStepSearching       SubStepKind = "searching"
	SubStepUploadSearching SubStepKind = "upload_searching"
)

// SubStep is one visible step inside a research block. DurationMs is
// attached after the step's tool execution finishes and is never
// overwritten once set.
type SubStep struct {
	Kind       SubStepKind `json:"kind"`
	Text       string      `json:"text,omitempty"`
	Query      string      `json:"query,omitempty"`
	DurationMs *int64      `json:"duration_ms,omitempty"`
}

type ResearchData struct {
	Phase    ResearchPhase `json:"phase"`
	SubSteps []SubStep     `json:"sub_steps"`
}

type WidgetData struct {
	Widget string `json:"widget"`
	Data   any    `json:"data"`
}
