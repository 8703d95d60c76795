package usecases

import (
	"context"
	"time"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

// ResolveResult is the outcome of resolving a request against the providers.
type ResolveResult struct {
	// Response is nil only when ExecuteOrNil found no answer.
	Response   *scenario.ResponseDescriptor
	TraceEntry trace.Entry
}

// ResolveResponseUseCase asks providers in order for a mocked response.
type ResolveResponseUseCase struct {
	providers    []services.Provider
	defaultDelay time.Duration
	clock        ports.Clock
	logger       ports.Logger
}

// NewResolveResponseUseCase creates a new use case. defaultDelay applies to
// responses that do not carry their own delay.
func NewResolveResponseUseCase(
	providers []services.Provider,
	defaultDelay time.Duration,
	clock ports.Clock,
	logger ports.Logger,
) *ResolveResponseUseCase {
	return &ResolveResponseUseCase{
		providers:    providers,
		defaultDelay: defaultDelay,
		clock:        clock,
		logger:       logger,
	}
}

// Execute always produces a response, falling back to a 404.
func (uc *ResolveResponseUseCase) Execute(ctx context.Context, req *scenario.HTTPRequest) (ResolveResult, error) {
	result, err := uc.ExecuteOrNil(ctx, req)
	if err != nil || result.Response != nil {
		return result, err
	}
	result.Response = scenario.NotFound()
	result.TraceEntry.Source = trace.SourceNotFound
	result.TraceEntry.Code = result.Response.Code
	return result, nil
}

// ExecuteOrNil returns the first provider answer, or a nil Response when no
// provider has one. The matched response's delay, or the default delay, is
// simulated before returning and ends early if ctx is cancelled.
func (uc *ResolveResponseUseCase) ExecuteOrNil(ctx context.Context, req *scenario.HTTPRequest) (ResolveResult, error) {
	result := ResolveResult{
		TraceEntry: trace.Entry{
			Timestamp: uc.clock.Now(),
			Method:    req.Method,
			URL:       req.URL(),
		},
	}
	entry := &result.TraceEntry

	for _, p := range uc.providers {
		out, err := p.Resolve(ctx, req)
		entry.Candidates = append(entry.Candidates, out.Candidates...)
		if err != nil {
			entry.Source, entry.File, entry.Error = out.Source, out.File, err.Error()
			uc.logger.Debug("provider failed", "source", out.Source, "url", entry.URL, "error", err)
			return result, err
		}
		if out.Response == nil {
			continue
		}

		entry.Source, entry.File, entry.Code = out.Source, out.File, out.Response.Code
		uc.logger.Debug("response found", "source", out.Source, "file", out.File, "url", entry.URL)

		delay := uc.defaultDelay
		if out.Response.Delay > 0 {
			delay = time.Duration(out.Response.Delay) * time.Millisecond
		}
		if delay > 0 {
			entry.DelayMs = delay.Milliseconds()
			if err := uc.clock.SleepContext(ctx, delay); err != nil {
				uc.logger.Debug("delay simulation cancelled", "url", entry.URL, "error", err)
				entry.Error = err.Error()
				return result, err
			}
		}

		result.Response = out.Response
		return result, nil
	}

	uc.logger.Debug("no mock response", "url", entry.URL)
	return result, nil
}
