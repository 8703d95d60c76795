package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sophialabs/httpmocker/internal/app"
)

func newConvertCmd() *cobra.Command {
	var rootDir string
	cmd := &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Re-encode a scenario file in the format of the destination extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			n, err := app.Convert(cmd.Context(), rootDir, args[0], args[1], level)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d entries from %s to %s\n", n, args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&rootDir, "root", app.DefaultConfig().RootDir, "root directory for scenario files")
	return cmd
}
