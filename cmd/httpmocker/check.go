package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sophialabs/httpmocker/internal/app"
)

func newCheckCmd() *cobra.Command {
	var (
		rootDir string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate every scenario file and its body files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			report, err := app.Check(cmd.Context(), rootDir, level)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				for _, f := range report.Files {
					switch {
					case f.Error != "":
						fmt.Fprintf(out, "FAIL %s: %s\n", f.File, f.Error)
					case len(f.MissingBodyFiles) > 0:
						fmt.Fprintf(out, "FAIL %s: missing body files %v\n", f.File, f.MissingBodyFiles)
					default:
						fmt.Fprintf(out, "ok   %s (%d entries)\n", f.File, f.Entries)
					}
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d scenario files are invalid", report.Failed, len(report.Files))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rootDir, "root", app.DefaultConfig().RootDir, "root directory for scenario files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
