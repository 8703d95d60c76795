package template

import (
	"fmt"
	"time"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// RenderContext is the request data visible to body templates.
type RenderContext struct {
	Method  string
	Path    string
	Headers []scenario.NamedParameter
	Params  []scenario.NamedParameter
	Body    []byte
	Now     time.Time
}

// NewRenderContext snapshots req for rendering at now.
func NewRenderContext(req *scenario.HTTPRequest, now time.Time) RenderContext {
	rc := RenderContext{
		Method:  req.Method,
		Path:    req.Path,
		Headers: req.Headers,
		Params:  req.Params,
		Now:     now,
	}
	if req.Body != nil {
		rc.Body = []byte(*req.Body)
	}
	return rc
}

// Renderer produces a response body for one request.
type Renderer interface {
	Render(ctx RenderContext) ([]byte, error)
}

// EngineCompiler compiles a template source string into a Renderer.
type EngineCompiler interface {
	Compile(name, source string) (Renderer, error)
}

// Engine names understood by the Registry.
const (
	EngineExpr   = "expr"
	EngineJinja2 = "jinja2"
)

// Registry maps engine names to their compilers.
type Registry struct {
	engines map[string]EngineCompiler
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]EngineCompiler{
			EngineExpr:   &ExprCompiler{},
			EngineJinja2: &Jinja2Compiler{},
		},
	}
}

// Compile resolves the engine by name and compiles the source.
func (r *Registry) Compile(engine, name, source string) (Renderer, error) {
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: %s, %s)", engine, EngineExpr, EngineJinja2)
	}
	return ec.Compile(name, source)
}
