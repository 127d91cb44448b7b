package steps

import "strings"

// Mode is the quality/speed tier for a research run. It controls only the
// researcher's iteration budget; every other stage behaves the same.
type Mode string

const (
	ModeSpeed    Mode = "speed"
	ModeBalanced Mode = "balanced"
	ModeQuality  Mode = "quality"
)

type modeBudget struct {
	MaxIterations int
}

var modeBudgets = map[Mode]modeBudget{
	ModeSpeed:    {MaxIterations: 2},
	ModeBalanced: {MaxIterations: 6},
	ModeQuality:  {MaxIterations: 25},
}

// ParseMode maps a request string onto a known tier, defaulting to
// balanced for anything unrecognized.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeSpeed:
		return ModeSpeed
	case ModeQuality:
		return ModeQuality
	default:
		return ModeBalanced
	}
}

func (m Mode) MaxIterations() int {
	if b, ok := modeBudgets[m]; ok {
		return b.MaxIterations
	}
	return modeBudgets[ModeBalanced].MaxIterations
}
