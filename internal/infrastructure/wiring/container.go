package wiring

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/httpmocker/internal/domain/filing"
	"github.com/sophialabs/httpmocker/internal/domain/match"
	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
	"github.com/sophialabs/httpmocker/internal/infrastructure/usecases"
)

// Params holds the configuration needed to construct the engine components.
type Params struct {
	// RootDir is the scenario folder. It backs file policies when Loader is
	// nil and is where calls are recorded. "" disables recording.
	RootDir string
	// Loader overrides the filesystem loader for reading scenarios.
	Loader scenario.Loader
	Mapper scenario.Mapper
	// Policies are tried in order, one static provider each.
	Policies []filing.Policy
	// RecordPolicy defaults to the first file policy, then to a mirror path.
	RecordPolicy filing.Policy
	Callbacks    []services.RequestCallback
	DefaultDelay time.Duration
	FailOnError  bool

	// CacheSize bounds the decoded scenario cache; 0 disables it.
	CacheSize int
	// Watch invalidates cached scenario files when they change on disk.
	Watch         bool
	WatchDebounce time.Duration

	TraceSize int
	Clock     ports.Clock
	Logger    ports.Logger
}

// Container owns the construction and lifecycle of the engine components.
type Container struct {
	logger    ports.Logger
	clock     ports.Clock
	resolveUC *usecases.ResolveResponseUseCase
	recordUC  *usecases.RecordCallUseCase
	cache     *services.ScenarioCache
	watcher   *filesystem.Watcher
	traceBuf  *trace.RingBuffer
	closeOnce sync.Once
}

// New constructs all components. Fallible operations run before the
// watcher goroutine starts so an early failure leaks nothing.
func New(p Params) (*Container, error) {
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	var cache *services.ScenarioCache
	if p.CacheSize > 0 {
		cache = services.NewScenarioCache(p.CacheSize)
	}

	loader := p.Loader
	if loader == nil && p.RootDir != "" {
		fsLoader, err := filesystem.NewLoader(p.RootDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create loader: %w", err)
		}
		loader = fsLoader
	}

	evaluator := match.NewEvaluator()
	var providers []services.Provider
	if len(p.Callbacks) > 0 {
		providers = append(providers, services.NewDynamicProvider(p.Callbacks...))
	}
	policies := p.Policies
	if len(policies) == 0 && loader != nil && p.Mapper != nil {
		policies = []filing.Policy{filing.MirrorPath{Format: p.Mapper.Format()}}
	}
	for i, policy := range policies {
		// An in-memory policy is its own source.
		if mem, ok := policy.(*filing.InMemory); ok {
			providers = append(providers, services.NewStaticProvider(mem, mem, evaluator, p.Logger))
			continue
		}
		if loader == nil {
			return nil, fmt.Errorf("policy %d needs a loader or a root folder", i)
		}
		if p.Mapper == nil {
			return nil, fmt.Errorf("policy %d needs a mapper", i)
		}
		src := services.NewFileSource(loader, p.Mapper, cache)
		providers = append(providers, services.NewStaticProvider(policy, src, evaluator, p.Logger))
	}

	resolveUC := usecases.NewResolveResponseUseCase(providers, p.DefaultDelay, clk, p.Logger)

	var recordUC *usecases.RecordCallUseCase
	if p.RootDir != "" && p.Mapper != nil {
		uc, err := newRecorder(p, cache)
		if err != nil {
			return nil, err
		}
		recordUC = uc
	}

	var watcher *filesystem.Watcher
	if p.Watch && p.RootDir != "" && cache != nil {
		if err := os.MkdirAll(p.RootDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create root directory: %w", err)
		}
		w, err := filesystem.NewWatcher(p.RootDir, append(codec.Formats(), "yml"), p.WatchDebounce, p.Logger, func(paths []string) {
			cache.Invalidate(paths...)
			p.Logger.Info("scenario files changed", "files", len(paths))
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		watcher = w
		// Start the goroutine only after all fallible ops succeed.
		watcher.Start()
	}

	return &Container{
		logger:    p.Logger,
		clock:     clk,
		resolveUC: resolveUC,
		recordUC:  recordUC,
		cache:     cache,
		watcher:   watcher,
		traceBuf:  trace.NewRingBuffer(p.TraceSize),
	}, nil
}

func newRecorder(p Params, cache *services.ScenarioCache) (*usecases.RecordCallUseCase, error) {
	loader, err := filesystem.NewLoader(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording loader: %w", err)
	}
	writer, err := filesystem.NewWriter(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}
	return usecases.NewRecordCallUseCase(usecases.RecordCallParams{
		Policy:      RecordPolicy(p.RecordPolicy, p.Policies, p.Mapper),
		Loader:      loader,
		Mapper:      p.Mapper,
		Writer:      writer,
		Cache:       cache,
		FailOnError: p.FailOnError,
		Logger:      p.Logger,
	}), nil
}

// RecordPolicy picks the policy used to record: the explicit one, else the
// first file policy, else a mirror path in the mapper's format.
func RecordPolicy(explicit filing.Policy, policies []filing.Policy, mapper scenario.Mapper) filing.Policy {
	if explicit != nil {
		return explicit
	}
	for _, policy := range policies {
		if _, ok := policy.(*filing.InMemory); !ok {
			return policy
		}
	}
	return filing.MirrorPath{Format: mapper.Format()}
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		if c.watcher != nil {
			c.watcher.Stop()
		}
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Clock returns the clock used for delays and timestamps.
func (c *Container) Clock() ports.Clock {
	return c.clock
}

// ResolveResponseUseCase returns the use case answering mocked requests.
func (c *Container) ResolveResponseUseCase() *usecases.ResolveResponseUseCase {
	return c.resolveUC
}

// RecordCallUseCase returns the recorder, or nil when recording is not configured.
func (c *Container) RecordCallUseCase() *usecases.RecordCallUseCase {
	return c.recordUC
}

// Cache returns the scenario cache, or nil when caching is disabled.
func (c *Container) Cache() *services.ScenarioCache {
	return c.cache
}

// TraceBuf returns the trace ring buffer.
func (c *Container) TraceBuf() *trace.RingBuffer {
	return c.traceBuf
}
