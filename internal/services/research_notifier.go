package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/realtime"
)

// ResearchNotifier streams block lifecycle events for one chat channel.
// Blocks are sent in full on creation; subsequent mutations travel as
// patch operations against the block id.
type ResearchNotifier interface {
	BlockCreated(chatID uuid.UUID, messageID string, block *research.Block)
	BlockPatched(chatID uuid.UUID, messageID string, blockID string, patches []research.PatchOp)
	MessageDone(chatID uuid.UUID, msg *chat.Message)
	MessageError(chatID uuid.UUID, messageID string, errMsg string)
	ChatCreated(c *chat.Chat)
}

type researchNotifier struct {
	emit SSEEmitter
}

func NewResearchNotifier(emit SSEEmitter) ResearchNotifier {
	return &researchNotifier{emit: emit}
}

func (n *researchNotifier) BlockCreated(chatID uuid.UUID, messageID string, block *research.Block) {
	if n == nil || n.emit == nil || chatID == uuid.Nil || block == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: chatID.String(),
		Event:   realtime.SSEEventBlockCreated,
		Data: map[string]any{
			"message_id": messageID,
			"block":      block,
		},
	})
}

func (n *researchNotifier) BlockPatched(chatID uuid.UUID, messageID string, blockID string, patches []research.PatchOp) {
	if n == nil || n.emit == nil || chatID == uuid.Nil || len(patches) == 0 {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: chatID.String(),
		Event:   realtime.SSEEventBlockPatched,
		Data: map[string]any{
			"message_id": messageID,
			"block_id":   blockID,
			"patches":    patches,
		},
	})
}

func (n *researchNotifier) MessageDone(chatID uuid.UUID, msg *chat.Message) {
	if n == nil || n.emit == nil || chatID == uuid.Nil || msg == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: chatID.String(),
		Event:   realtime.SSEEventMessageDone,
		Data: map[string]any{
			"message": msg,
		},
	})
}

func (n *researchNotifier) ChatCreated(c *chat.Chat) {
	if n == nil || n.emit == nil || c == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: c.ID.String(),
		Event:   realtime.SSEEventChatCreated,
		Data: map[string]any{
			"chat": c,
		},
	})
}

func (n *researchNotifier) MessageError(chatID uuid.UUID, messageID string, errMsg string) {
	if n == nil || n.emit == nil || chatID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: chatID.String(),
		Event:   realtime.SSEEventMessageError,
		Data: map[string]any{
			"message_id": messageID,
			"error":      errMsg,
		},
	})
}
