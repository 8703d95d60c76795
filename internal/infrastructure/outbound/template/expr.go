package template

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprCompiler compiles body templates using the Expr language with ${ } interpolation.
type ExprCompiler struct{}

// Compile parses the source for ${ } delimiters and compiles each expression.
func (c *ExprCompiler) Compile(name, source string) (Renderer, error) {
	segments, err := parseExprSegments(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expr template %q: %w", name, err)
	}
	for _, seg := range segments {
		if seg.program != nil {
			return &exprRenderer{segments: segments}, nil
		}
	}
	return staticRenderer(source), nil
}

type exprSegment struct {
	static  string
	program *vm.Program
}

func parseExprSegments(source string) ([]exprSegment, error) {
	var segments []exprSegment
	remaining := source
	offset := 0

	for {
		idx := strings.Index(remaining, "${")
		if idx < 0 {
			if remaining != "" {
				segments = append(segments, exprSegment{static: remaining})
			}
			return segments, nil
		}
		if idx > 0 {
			segments = append(segments, exprSegment{static: remaining[:idx]})
		}

		rest := remaining[idx+2:]
		closeIdx := findClosingBrace(rest)
		if closeIdx < 0 {
			return nil, fmt.Errorf("unclosed ${ at position %d", offset+idx)
		}

		expression := rest[:closeIdx]
		program, err := expr.Compile(expression, expr.Env(exprEnv{}))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}
		segments = append(segments, exprSegment{program: program})
		consumed := idx + 2 + closeIdx + 1
		offset += consumed
		remaining = remaining[consumed:]
	}
}

// findClosingBrace finds the matching } accounting for nested braces and quoted strings.
func findClosingBrace(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// exprEnv defines the environment available to Expr expressions.
type exprEnv struct {
	Method      string                `expr:"method"`
	Path        string                `expr:"path"`
	Segment     func(int) string      `expr:"segment"`
	QueryParam  func(string) string   `expr:"queryParam"`
	QueryParams func(string) []string `expr:"queryParams"`
	Header      func(string) string   `expr:"header"`
	Headers     func(string) []string `expr:"headers"`
	Body        func() string         `expr:"body"`
	Now         func() string         `expr:"now"`
	NowFormat   func(string) string   `expr:"nowFormat"`
	UUID        func() string         `expr:"uuid"`
	RandomInt   func(int, int) int    `expr:"randomInt"`
	Seq         func(int, int) []int  `expr:"seq"`
	ToJSON      func(any) string      `expr:"toJSON"`
	JSONPath    func(string) string   `expr:"jsonPath"`
}

func buildExprEnv(ctx RenderContext) exprEnv {
	h := helpers{ctx: ctx}
	return exprEnv{
		Method:      ctx.Method,
		Path:        ctx.Path,
		Segment:     h.segment,
		QueryParam:  h.queryParam,
		QueryParams: h.queryParams,
		Header:      h.header,
		Headers:     h.headers,
		Body:        h.body,
		Now:         h.now,
		NowFormat:   h.nowFormat,
		UUID:        newUUID,
		RandomInt:   randomInt,
		Seq:         seqInts,
		ToJSON:      toJSONString,
		JSONPath:    h.jsonPath,
	}
}

type exprRenderer struct {
	segments []exprSegment
}

func (r *exprRenderer) Render(ctx RenderContext) ([]byte, error) {
	env := buildExprEnv(ctx)

	var buf strings.Builder
	for _, seg := range r.segments {
		if seg.program == nil {
			buf.WriteString(seg.static)
			continue
		}
		result, err := expr.Run(seg.program, env)
		if err != nil {
			return nil, fmt.Errorf("expression evaluation failed: %w", err)
		}
		fmt.Fprintf(&buf, "%v", result)
	}
	return []byte(buf.String()), nil
}

// staticRenderer returns a fixed body.
type staticRenderer string

func (r staticRenderer) Render(RenderContext) ([]byte, error) {
	return []byte(r), nil
}
