package services

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/filing"
	"github.com/sophialabs/httpmocker/internal/domain/match"
	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

// RequestCallback answers a request programmatically. A nil response with
// a nil error means the callback has no answer.
type RequestCallback func(ctx context.Context, req *scenario.HTTPRequest) (*scenario.ResponseDescriptor, error)

// Outcome describes what a provider produced for one request.
type Outcome struct {
	// Response is nil when the provider has no answer.
	Response *scenario.ResponseDescriptor
	Source   trace.Source
	// File is the scenario file consulted, if any.
	File       string
	Candidates []trace.CandidateResult
}

// Provider is a source of mocked responses. The set of implementations is
// closed: *DynamicProvider and *StaticProvider.
type Provider interface {
	// Resolve returns the provider's answer for req. An error is only
	// returned for failures that must reach the caller: a callback error or
	// a recorded network error.
	Resolve(ctx context.Context, req *scenario.HTTPRequest) (Outcome, error)

	provider()
}

// DynamicProvider asks user callbacks in order.
type DynamicProvider struct {
	callbacks []RequestCallback
}

// NewDynamicProvider creates a provider over callbacks, tried in order.
func NewDynamicProvider(callbacks ...RequestCallback) *DynamicProvider {
	return &DynamicProvider{callbacks: callbacks}
}

func (p *DynamicProvider) provider() {}

// Resolve returns the first non-nil callback response. Callback errors
// are returned as is.
func (p *DynamicProvider) Resolve(ctx context.Context, req *scenario.HTTPRequest) (Outcome, error) {
	out := Outcome{Source: trace.SourceDynamic}
	for _, cb := range p.callbacks {
		resp, err := cb(ctx, req)
		if err != nil {
			return out, err
		}
		if resp != nil {
			out.Response = resp
			return out, nil
		}
	}
	return out, nil
}

// StaticProvider resolves a request to a scenario file through a filing
// policy and answers with the first matching entry.
type StaticProvider struct {
	policy    filing.Policy
	source    scenario.Source
	evaluator *match.Evaluator
	logger    ports.Logger
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(policy filing.Policy, source scenario.Source, evaluator *match.Evaluator, logger ports.Logger) *StaticProvider {
	return &StaticProvider{
		policy:    policy,
		source:    source,
		evaluator: evaluator,
		logger:    logger,
	}
}

func (p *StaticProvider) provider() {}

// Resolve loads the scenario file for req and evaluates it. A file that is
// missing, unreadable or malformed yields no answer.
func (p *StaticProvider) Resolve(ctx context.Context, req *scenario.HTTPRequest) (Outcome, error) {
	file := p.policy.Path(req)
	out := Outcome{Source: trace.SourceStatic, File: file}

	matchers, err := p.source.Matchers(ctx, file)
	if err != nil {
		if errors.Is(err, scenario.ErrNotFound) {
			p.logger.Debug("no scenario file", "file", file)
		} else {
			p.logger.Warn("scenario file could not be loaded", "file", file, "error", err)
		}
		return out, nil
	}

	res := p.evaluator.Evaluate(req, matchers)
	for i := range res.Candidates {
		res.Candidates[i].File = file
	}
	out.Candidates = res.Candidates

	if res.Matched == nil {
		if len(res.Candidates) > 0 {
			reasons := make([]string, len(res.Candidates))
			for i, c := range res.Candidates {
				reasons[i] = match.Describe(c)
			}
			p.logger.Debug("no match for request", "file", file, "url", req.URL(), "candidates", reasons)
		}
		return out, nil
	}
	p.logger.Debug("match found", "file", file, "index", res.Index)

	if e := res.Matched.Error; e != nil {
		return out, e.Err()
	}
	if res.Matched.Response == nil {
		p.logger.Warn("matched entry has neither response nor error", "file", file, "index", res.Index)
		return out, nil
	}

	resp := res.Matched.Response.Clone()
	if resp.BodyFile != nil {
		bodyPath := BodyFilePath(file, *resp.BodyFile)
		data, err := p.source.BodyFile(ctx, bodyPath)
		if err != nil {
			p.logger.Warn("body file could not be loaded", "file", bodyPath, "error", err)
		} else {
			resp.Body = string(data)
		}
		resp.BodyFile = nil
	}
	out.Response = resp
	return out, nil
}

// BodyFilePath resolves a body file reference against the folder of the
// scenario file that declares it. ".." segments are collapsed and never
// climb above the root.
func BodyFilePath(scenarioFile, bodyFile string) string {
	p := path.Join(path.Dir(scenarioFile), bodyFile)
	for p == ".." || strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(strings.TrimPrefix(p, ".."), "/")
	}
	if p == "" || p == "/" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}
