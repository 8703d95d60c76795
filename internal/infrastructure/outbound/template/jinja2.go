package template

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// Jinja2Compiler compiles body templates using Pongo2 (Django/Jinja2-style).
type Jinja2Compiler struct{}

// Compile parses the source as a Pongo2 template.
func (c *Jinja2Compiler) Compile(name, source string) (Renderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jinja2 template %q: %w", name, err)
	}
	return &jinja2Renderer{tpl: tpl}, nil
}

type jinja2Renderer struct {
	tpl *pongo2.Template
}

func (r *jinja2Renderer) Render(ctx RenderContext) ([]byte, error) {
	h := helpers{ctx: ctx}
	result, err := r.tpl.Execute(pongo2.Context{
		"method": ctx.Method,
		"path":   ctx.Path,
		"body":   h.body(),
		"now":    h.now(),

		"segment":     h.segment,
		"queryParam":  h.queryParam,
		"queryParams": h.queryParams,
		"header":      h.header,
		"headers":     h.headers,
		"nowFormat":   h.nowFormat,
		"jsonPath":    h.jsonPath,
		"uuid":        newUUID,
		"randomInt":   randomInt,
		"seq":         seqInts,
		"toJSON":      toJSONString,
	})
	if err != nil {
		return nil, fmt.Errorf("jinja2 template render failed: %w", err)
	}
	return []byte(result), nil
}
