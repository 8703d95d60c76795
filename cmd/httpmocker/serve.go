package main

import (
	"github.com/spf13/cobra"

	"github.com/sophialabs/httpmocker/internal/app"
)

func newServeCmd() *cobra.Command {
	cfg := app.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mocking proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.RootDir, "root", cfg.RootDir, "root directory for scenario files")
	f.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	f.StringVar(&cfg.Upstream, "upstream", cfg.Upstream, "base URL live requests are sent to (empty: the requested host)")
	f.StringVar(&cfg.Mode, "mode", cfg.Mode, "initial mode (disabled, enabled, mixed, record)")
	f.StringVar(&cfg.Format, "format", cfg.Format, "scenario file format (json, yaml, xml)")
	f.StringVar(&cfg.Policy, "policy", cfg.Policy, "filing policy (mirror, server, folder:<dir>, file:<path>)")
	f.IntVar(&cfg.TraceSize, "trace-size", cfg.TraceSize, "number of trace entries to keep")
	f.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "number of decoded scenario files to cache (0 disables)")
	f.DurationVar(&cfg.DefaultDelay, "delay", cfg.DefaultDelay, "delay for mocked responses without their own")
	f.BoolVar(&cfg.FailOnError, "fail-on-error", cfg.FailOnError, "fail requests whose recording fails")
	f.StringVar(&cfg.TemplateFile, "templates", cfg.TemplateFile, "scenario file whose response bodies are templates")
	f.StringVar(&cfg.TemplateEngine, "template-engine", cfg.TemplateEngine, "template engine (expr, jinja2)")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload scenario files when they change")
	f.DurationVar(&cfg.WatcherDebounce, "watch-debounce", cfg.WatcherDebounce, "quiet period before reloading changed files")
	f.Float64Var(&cfg.UpstreamRate, "upstream-rate", cfg.UpstreamRate, "live calls per second per host (0: unlimited)")
	f.IntVar(&cfg.UpstreamBurst, "upstream-burst", cfg.UpstreamBurst, "burst size for live calls per host")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	return cmd
}
