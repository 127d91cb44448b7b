package steps

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/observability"
)

// widget is an always-run action. It inspects the raw query itself and
// returns (nil, nil) when it has nothing to contribute.
type widget interface {
	Name() string
	Run(ctx context.Context, query string) (*research.WidgetOutput, error)
}

func defaultWidgets(now func() time.Time) []widget {
	if now == nil {
		now = time.Now
	}
	return []widget{
		&calculatorWidget{},
		&quickFactsWidget{now: now},
	}
}

// runWidgets executes every widget concurrently against the raw query.
// Each hit becomes a widget block immediately; the joined LLM contexts go
// to the writer as non-citable background. Widget errors never fail the
// run.
func runWidgets(ctx context.Context, session *blockSession, widgets []widget, query string) []string {
	contexts := make([]string, len(widgets))

	g, ctx := errgroup.WithContext(ctx)
	for i, w := range widgets {
		g.Go(func() error {
			start := time.Now()
			out, err := w.Run(ctx, query)
			status := "ok"
			if err != nil {
				status = "error"
			}
			if m := observability.Current(); m != nil {
				m.ObserveToolExecution("widget_"+w.Name(), status, time.Since(start))
			}
			if err != nil || out == nil {
				return nil
			}
			session.emit(research.BlockTypeWidget, research.WidgetData{
				Widget: w.Name(),
				Data:   out.Data,
			})
			contexts[i] = out.LLMContext
			return nil
		})
	}
	_ = g.Wait()

	nonEmpty := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return nonEmpty
}

// calculatorWidget evaluates the first arithmetic expression found in the
// query. It only fires on expressions with at least one operator so bare
// numbers ("top 10 results") do not trigger it.
type calculatorWidget struct{}

func (c *calculatorWidget) Name() string { return "calculator" }

var arithmeticExpr = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?(?:\s*[-+*/^]\s*\(*\s*[-+]?\d+(?:\.\d+)?\s*\)*)+`)

func (c *calculatorWidget) Run(_ context.Context, query string) (*research.WidgetOutput, error) {
	expr := strings.TrimSpace(arithmeticExpr.FindString(query))
	if expr == "" {
		return nil, nil
	}
	value, err := evalArithmetic(expr)
	if err != nil {
		return nil, nil
	}
	rendered := strconv.FormatFloat(value, 'f', -1, 64)
	return &research.WidgetOutput{
		Type: "calculator",
		Data: map[string]any{
			"expression": expr,
			"result":     rendered,
		},
		LLMContext: fmt.Sprintf("Calculator: %s = %s", expr, rendered),
	}, nil
}

// quickFactsWidget answers date and time questions directly.
type quickFactsWidget struct {
	now func() time.Time
}

func (q *quickFactsWidget) Name() string { return "quick_facts" }

var dateTimeHints = []string{
	"what time", "current time", "time is it",
	"what date", "what day", "today's date", "current date", "date today",
}

func (q *quickFactsWidget) Run(_ context.Context, query string) (*research.WidgetOutput, error) {
	lowered := strings.ToLower(query)
	matched := false
	for _, hint := range dateTimeHints {
		if strings.Contains(lowered, hint) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}
	now := q.now().UTC()
	return &research.WidgetOutput{
		Type: "quick_facts",
		Data: map[string]any{
			"date":     now.Format("2006-01-02"),
			"time":     now.Format("15:04"),
			"weekday":  now.Weekday().String(),
			"timezone": "UTC",
		},
		LLMContext: fmt.Sprintf("Current date and time (UTC): %s (%s) %s", now.Format("2006-01-02"), now.Weekday(), now.Format("15:04")),
	}, nil
}

// evalArithmetic evaluates +, -, *, /, ^ and parentheses with a
// recursive-descent parser.
func evalArithmetic(expr string) (float64, error) {
	p := &exprParser{input: expr}
	v, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at position %d", p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseAddSub() (float64, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseMulDiv()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseMulDiv() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		left /= right
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if p.peek() != '^' {
		return base, nil
	}
	p.pos++
	// right-associative
	exp, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *exprParser) parseUnary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", start)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
