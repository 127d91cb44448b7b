package steps

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/domain/research"
)

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2+2", 4},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"2^10", 1024},
		{"2^3^2", 512}, // right-associative
		{"-3 + 5", 2},
		{"1.5 * 2", 3},
	}
	for _, c := range cases {
		got, err := evalArithmetic(c.expr)
		if err != nil {
			t.Fatalf("evalArithmetic(%q): %v", c.expr, err)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("evalArithmetic(%q): want=%v got=%v", c.expr, c.want, got)
		}
	}
}

func TestEvalArithmeticErrors(t *testing.T) {
	for _, expr := range []string{"2 +", "(2+3", "1/0", "abc"} {
		if _, err := evalArithmetic(expr); err == nil {
			t.Fatalf("evalArithmetic(%q): expected error", expr)
		}
	}
}

func TestCalculatorWidgetExtractsExpression(t *testing.T) {
	w := &calculatorWidget{}

	out, err := w.Run(context.Background(), "what is 12 * (3 + 4)?")
	if err != nil || out == nil {
		t.Fatalf("expected a calculator hit: out=%v err=%v", out, err)
	}
	data := out.Data.(map[string]any)
	if data["result"] != "84" {
		t.Fatalf("result: want=84 got=%v", data["result"])
	}

	out, err = w.Run(context.Background(), "top 10 go conferences")
	if err != nil || out != nil {
		t.Fatalf("bare numbers must not trigger the calculator: out=%v err=%v", out, err)
	}
}

func TestQuickFactsWidget(t *testing.T) {
	fixed := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	w := &quickFactsWidget{now: func() time.Time { return fixed }}

	out, err := w.Run(context.Background(), "What day is today's date?")
	if err != nil || out == nil {
		t.Fatalf("expected a quick facts hit: out=%v err=%v", out, err)
	}
	data := out.Data.(map[string]any)
	if data["date"] != "2026-08-30" || data["weekday"] != "Sunday" {
		t.Fatalf("unexpected data: %#v", data)
	}

	out, err = w.Run(context.Background(), "explain goroutine scheduling")
	if err != nil || out != nil {
		t.Fatalf("unrelated query must not trigger quick facts: out=%v", out)
	}
}

func TestRunWidgetsEmitsBlocksAndCollectsContext(t *testing.T) {
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)
	fixed := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	contexts := runWidgets(context.Background(), session, defaultWidgets(func() time.Time { return fixed }), "what date is it and what is 6*7?")
	if len(contexts) != 2 {
		t.Fatalf("expected both widget contexts, got %#v", contexts)
	}

	widgetBlocks := 0
	for _, b := range notify.created {
		if b.Type == research.BlockTypeWidget {
			widgetBlocks++
		}
	}
	if widgetBlocks != 2 {
		t.Fatalf("expected 2 widget blocks, got %d", widgetBlocks)
	}
}

func TestRunWidgetsNoHitsNoBlocks(t *testing.T) {
	notify := &recordingNotifier{}
	session := newBlockSession(uuid.New(), "m1", notify)

	contexts := runWidgets(context.Background(), session, defaultWidgets(nil), "compare raft and paxos")
	if len(contexts) != 0 || len(notify.created) != 0 {
		t.Fatalf("no widget should fire: contexts=%v blocks=%d", contexts, len(notify.created))
	}
}
