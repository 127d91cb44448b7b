package steps

import "testing"

func TestParseModeDefaultsToBalanced(t *testing.T) {
	cases := map[string]Mode{
		"speed":    ModeSpeed,
		"SPEED":    ModeSpeed,
		"balanced": ModeBalanced,
		"quality":  ModeQuality,
		"":         ModeBalanced,
		"turbo":    ModeBalanced,
	}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Fatalf("ParseMode(%q): want=%s got=%s", in, want, got)
		}
	}
}

func TestMaxIterationsPerMode(t *testing.T) {
	if got := ModeSpeed.MaxIterations(); got != 2 {
		t.Fatalf("speed cap: want=2 got=%d", got)
	}
	if got := ModeBalanced.MaxIterations(); got != 6 {
		t.Fatalf("balanced cap: want=6 got=%d", got)
	}
	if got := ModeQuality.MaxIterations(); got != 25 {
		t.Fatalf("quality cap: want=25 got=%d", got)
	}
}
