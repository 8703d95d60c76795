package app

import (
	"time"

	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

// Config holds all configurable parameters for the application.
type Config struct {
	RootDir  string
	Port     int
	Upstream string // "" forwards to the host each request names
	Mode     string // disabled, enabled, mixed, record
	Format   string // json, yaml, xml
	Policy   string // mirror, server, folder:<dir>, file:<path>
	LogLevel string

	TraceSize    int
	CacheSize    int
	DefaultDelay time.Duration
	FailOnError  bool

	TemplateFile   string // scenario file whose response bodies are templates
	TemplateEngine string // expr, jinja2

	Watch           bool
	WatcherDebounce time.Duration

	UpstreamRate   float64 // live calls per second per host, 0 = unlimited
	UpstreamBurst  int
	RateLimiterTTL time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		RootDir:  "./mock",
		Port:     8080,
		Mode:     "mixed",
		Format:   codec.FormatJSON,
		Policy:   "mirror",
		LogLevel: "info",

		TraceSize: 200,
		CacheSize: services.DefaultCacheEntries,

		TemplateEngine: "expr",

		Watch:           true,
		WatcherDebounce: 500 * time.Millisecond,

		UpstreamBurst:  1,
		RateLimiterTTL: 10 * time.Minute,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
