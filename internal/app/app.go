package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sophialabs/httpmocker"
	"github.com/sophialabs/httpmocker/internal/domain/match"
	inboundhttp "github.com/sophialabs/httpmocker/internal/infrastructure/inbound/http"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/template"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

// App is the thin lifecycle manager of the mocking proxy.
type App struct {
	cfg        Config
	logger     *logging.SlogLogger
	mocker     *httpmocker.Mocker
	limiter    *ratelimit.TokenBucketStore
	httpServer *http.Server
}

// New constructs the application: the engine, its upstream transport and
// the HTTP server in front of it.
func New(cfg Config) (*App, error) {
	slogger := NewLogger(cfg.LogLevel)
	logger := logging.New(slogger)

	mode, err := httpmocker.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	mapper, err := codec.ForFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	policy, err := ParsePolicy(cfg.Policy, mapper.Format())
	if err != nil {
		return nil, err
	}
	upstream, err := parseUpstream(cfg.Upstream)
	if err != nil {
		return nil, err
	}
	clk := clock.New()
	callbacks, err := loadTemplates(cfg.TemplateFile, cfg.TemplateEngine, clk)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewTokenBucketStore(clk, cfg.RateLimiterTTL)
	mocker, err := httpmocker.New(httpmocker.Config{
		Policies:      []httpmocker.FilingPolicy{policy},
		Mapper:        mapper,
		Callbacks:     callbacks,
		DefaultDelay:  cfg.DefaultDelay,
		FailOnError:   cfg.FailOnError,
		Mode:          mode,
		RootFolder:    cfg.RootDir,
		Transport:     ratelimit.NewTransport(http.DefaultTransport, limiter, cfg.UpstreamRate, cfg.UpstreamBurst),
		CacheSize:     cfg.CacheSize,
		Watch:         cfg.Watch,
		WatchDebounce: cfg.WatcherDebounce,
		TraceSize:     cfg.TraceSize,
		Clock:         clk,
		Logger:        slogger,
	})
	if err != nil {
		limiter.Stop()
		return nil, fmt.Errorf("failed to build mocker: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      inboundhttp.NewServer(mocker, upstream, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		mocker:     mocker,
		limiter:    limiter,
		httpServer: httpServer,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM or ctx cancellation, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.limiter.Stop()
	defer a.mocker.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting httpmocker proxy", "addr", a.httpServer.Addr, "root", a.cfg.RootDir,
			"mode", a.mocker.Mode().String(), "upstream", a.cfg.Upstream)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

func parseUpstream(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q: scheme and host are required", raw)
	}
	return u, nil
}

// loadTemplates turns every entry of a scenario file into a callback whose
// response body is a template.
func loadTemplates(file, engine string, clk clock.System) ([]httpmocker.RequestCallback, error) {
	if file == "" {
		return nil, nil
	}
	mapper, err := codec.ForPath(file)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	matchers, err := mapper.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}
	callbacks, err := services.TemplateCallbacks(template.NewRegistry(), engine, filepath.Base(file), matchers, match.NewEvaluator(), clk)
	if err != nil {
		return nil, fmt.Errorf("failed to compile templates: %w", err)
	}
	return callbacks, nil
}

// NewLogger returns a text logger on stdout at the named level.
func NewLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func newLogger(level string) *logging.SlogLogger {
	return logging.New(NewLogger(level))
}
