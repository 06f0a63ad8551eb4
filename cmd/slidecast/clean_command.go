package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/segment"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete all cached segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := segment.Clean(cfg.Paths.CacheDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache artifacts from %s\n", removed, cfg.Paths.CacheDir)
			return nil
		},
	}
}
