package steps

import (
	"sync"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/services"
)

// blockSession owns the ordered block list for one in-flight answer.
// Blocks are emitted once and then mutated through patch operations; the
// same ops that mutate local state are forwarded to subscribers, so a
// client replaying the stream converges on the persisted snapshot.
//
// The researcher loop and the widget executor both write here, so access
// is serialized by a mutex; patch ordering within one block is still
// owned by a single goroutine.
type blockSession struct {
	mu        sync.Mutex
	chatID    uuid.UUID
	messageID string
	notify    services.ResearchNotifier

	blocks []*research.Block
	index  map[string]*research.Block
}

func newBlockSession(chatID uuid.UUID, messageID string, notify services.ResearchNotifier) *blockSession {
	return &blockSession{
		chatID:    chatID,
		messageID: messageID,
		notify:    notify,
		index:     make(map[string]*research.Block),
	}
}

// emit creates a block, appends it to the session and announces it.
func (s *blockSession) emit(blockType research.BlockType, data any) *research.Block {
	block := &research.Block{
		ID:   uuid.NewString(),
		Type: blockType,
		Data: data,
	}

	s.mu.Lock()
	s.blocks = append(s.blocks, block)
	s.index[block.ID] = block
	s.mu.Unlock()

	if s.notify != nil {
		s.notify.BlockCreated(s.chatID, s.messageID, block)
	}
	return block
}

// patch applies ops to the identified block and forwards them. Unknown
// block ids are ignored.
func (s *blockSession) patch(blockID string, ops ...research.PatchOp) {
	if len(ops) == 0 {
		return
	}

	s.mu.Lock()
	block, ok := s.index[blockID]
	if ok {
		for _, op := range ops {
			applyPatch(block, op)
		}
	}
	s.mu.Unlock()

	if ok && s.notify != nil {
		s.notify.BlockPatched(s.chatID, s.messageID, blockID, ops)
	}
}

func applyPatch(block *research.Block, op research.PatchOp) {
	if op.Op != "replace" {
		return
	}
	switch op.Path {
	case "/data":
		block.Data = op.Value
	case "/data/phase":
		data, ok := block.Data.(research.ResearchData)
		if !ok {
			return
		}
		switch v := op.Value.(type) {
		case research.ResearchPhase:
			data.Phase = v
		case string:
			data.Phase = research.ResearchPhase(v)
		default:
			return
		}
		block.Data = data
	case "/data/sub_steps":
		data, ok := block.Data.(research.ResearchData)
		if !ok {
			return
		}
		subSteps, ok := op.Value.([]research.SubStep)
		if !ok {
			return
		}
		data.SubSteps = subSteps
		block.Data = data
	}
}

// snapshot returns a copy of the block list in emission order, for
// persisting into the message's response_blocks column.
func (s *blockSession) snapshot() []research.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]research.Block, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, *b)
	}
	return out
}

func (s *blockSession) get(blockID string) *research.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[blockID]
}
