package domain

import (
	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/domain/research"
)

type (
	Chat    = chat.Chat
	Message = chat.Message

	Block         = research.Block
	BlockType     = research.BlockType
	PatchOp       = research.PatchOp
	ResearchData  = research.ResearchData
	ResearchPhase = research.ResearchPhase
	SubStep       = research.SubStep
	SubStepKind   = research.SubStepKind
	WidgetData    = research.WidgetData

	Chunk         = research.Chunk
	ChunkMetadata = research.ChunkMetadata
	Evidence      = research.Evidence
	Claim         = research.Claim

	ToolCall         = research.ToolCall
	ActionOutput     = research.ActionOutput
	ActionOutputType = research.ActionOutputType
	WidgetOutput     = research.WidgetOutput
)

const (
	MessageStatusAnswering = chat.MessageStatusAnswering
	MessageStatusCompleted = chat.MessageStatusCompleted
	MessageStatusError     = chat.MessageStatusError

	BlockTypeText     = research.BlockTypeText
	BlockTypeResearch = research.BlockTypeResearch
	BlockTypeSource   = research.BlockTypeSource
	BlockTypeWidget   = research.BlockTypeWidget
	BlockTypeClaim    = research.BlockTypeClaim

	PhaseAnalysis  = research.PhaseAnalysis
	PhaseSynthesis = research.PhaseSynthesis

	SubStepReasoning       = research.SubStepReasoning
	SubStepSearching       = research.SubStepSearching
	SubStepUploadSearching = research.SubStepUploadSearching

	ActionOutputSearchResults = research.ActionOutputSearchResults
	ActionOutputWidget        = research.ActionOutputWidget
	ActionOutputError         = research.ActionOutputError
)
