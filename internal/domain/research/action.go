package research

// ToolCall is one fully accumulated tool invocation proposed by the model.
// Arguments is the raw JSON argument string assembled from streamed
// fragments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ActionOutputType string

const (
	ActionOutputSearchResults ActionOutputType = "search_results"
	ActionOutputWidget        ActionOutputType = "widget_output"
	ActionOutputError         ActionOutputType = "error"
)

// WidgetOutput is the result of an always-run widget action. LLMContext is
// injected into the writer prompt but marked non-citable: the widget result
// is already rendered to the user as its own block.
type WidgetOutput struct {
	Type       string `json:"type"`
	Data       any    `json:"data"`
	LLMContext string `json:"llm_context"`
}

// ActionOutput is the tagged result of one tool or widget execution. An
// individual tool failure is surfaced as an error output rather than
// aborting the research loop.
type ActionOutput struct {
	Type    ActionOutputType `json:"type"`
	Results []Chunk          `json:"results,omitempty"`
	Widget  *WidgetOutput    `json:"widget,omitempty"`
	Tool    string           `json:"tool,omitempty"`
	Error   string           `json:"error,omitempty"`
}
