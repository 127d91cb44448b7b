package steps

import (
	"testing"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
)

func TestBlockSessionEmitAndPatchText(t *testing.T) {
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)

	block := session.emit(research.BlockTypeText, "hel")
	session.patch(block.ID, research.ReplaceOp("/data", "hello"))

	got := session.get(block.ID)
	if got == nil || got.Data != "hello" {
		t.Fatalf("text block not patched: %#v", got)
	}

	if len(notify.created) != 1 || notify.created[0].ID != block.ID {
		t.Fatalf("expected one creation event, got %#v", notify.created)
	}
	patches := notify.patchesFor(block.ID)
	if len(patches) != 1 || patches[0].Ops[0].Path != "/data" {
		t.Fatalf("expected one /data patch, got %#v", patches)
	}
}

func TestBlockSessionPatchResearchFields(t *testing.T) {
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)

	block := session.emit(research.BlockTypeResearch, research.ResearchData{
		Phase:    research.PhaseAnalysis,
		SubSteps: []research.SubStep{},
	})

	steps := []research.SubStep{{Kind: research.SubStepSearching, Query: "go generics"}}
	session.patch(block.ID, research.ReplaceOp("/data/sub_steps", steps))
	session.patch(block.ID, research.ReplaceOp("/data/phase", research.PhaseSynthesis))

	data, ok := session.get(block.ID).Data.(research.ResearchData)
	if !ok {
		t.Fatalf("research block data has wrong type: %#v", session.get(block.ID).Data)
	}
	if data.Phase != research.PhaseSynthesis {
		t.Fatalf("phase not patched: %s", data.Phase)
	}
	if len(data.SubSteps) != 1 || data.SubSteps[0].Query != "go generics" {
		t.Fatalf("sub_steps not patched: %#v", data.SubSteps)
	}
}

func TestBlockSessionIgnoresUnknownBlock(t *testing.T) {
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)

	session.patch("nope", research.ReplaceOp("/data", "x"))
	if len(notify.patched) != 0 {
		t.Fatalf("patch on unknown block must not notify: %#v", notify.patched)
	}
}

func TestBlockSessionSnapshotPreservesEmissionOrder(t *testing.T) {
	session := newBlockSession(uuid.New(), "m1", nil)

	session.emit(research.BlockTypeResearch, research.ResearchData{Phase: research.PhaseAnalysis})
	session.emit(research.BlockTypeSource, []research.Chunk{})
	session.emit(research.BlockTypeText, "answer")

	snap := session.snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(snap))
	}
	want := []research.BlockType{research.BlockTypeResearch, research.BlockTypeSource, research.BlockTypeText}
	for i, bt := range want {
		if snap[i].Type != bt {
			t.Fatalf("block %d: want=%s got=%s", i, bt, snap[i].Type)
		}
	}
}
