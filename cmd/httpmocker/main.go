package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "httpmocker",
		Short: "Mock, record and replay HTTP traffic from scenario files",
		Long: `httpmocker answers HTTP requests from scenario files, passes them
through to a real server, or records real exchanges as scenario files.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(newServeCmd(), newConvertCmd(), newCheckCmd())
	return root
}
