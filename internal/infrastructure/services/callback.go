package services

import (
	"context"
	"fmt"

	"github.com/sophialabs/httpmocker/internal/domain/match"
	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/template"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

// TemplateRegistry compiles template sources into renderers by engine name.
type TemplateRegistry interface {
	Compile(engine, name, source string) (template.Renderer, error)
}

// TemplateCallback answers requests accepted by when with response, whose
// body is rendered from a template for every request.
func TemplateCallback(evaluator *match.Evaluator, when scenario.RequestTemplate, response *scenario.ResponseDescriptor, renderer template.Renderer, clock ports.Clock) RequestCallback {
	return func(_ context.Context, req *scenario.HTTPRequest) (*scenario.ResponseDescriptor, error) {
		if !evaluator.Matches(&when, req) {
			return nil, nil
		}
		body, err := renderer.Render(template.NewRenderContext(req, clock.Now()))
		if err != nil {
			return nil, fmt.Errorf("failed to render response for %s %s: %w", req.Method, req.Path, err)
		}
		resp := response.Clone()
		resp.Body = string(body)
		resp.BodyFile = nil
		return resp, nil
	}
}

// TemplateCallbacks compiles every response body in matchers with engine
// and returns one callback per entry, in order. Entries without a response
// are skipped.
func TemplateCallbacks(registry TemplateRegistry, engine, name string, matchers []scenario.Matcher, evaluator *match.Evaluator, clock ports.Clock) ([]RequestCallback, error) {
	var out []RequestCallback
	for i, m := range matchers {
		if m.Response == nil {
			continue
		}
		r, err := registry.Compile(engine, fmt.Sprintf("%s#%d", name, i), m.Response.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, TemplateCallback(evaluator, m.Request, m.Response, r, clock))
	}
	return out, nil
}
