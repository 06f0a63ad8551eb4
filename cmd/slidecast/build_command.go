package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"slidecast/internal/pipeline"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var limit int

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the slideshow once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipe := pipeline.NewDefault(cfg, logger, store)
			if limit > 0 {
				pipe.SetSlideLimit(limit)
			}
			outcome, err := pipe.Run(runCtx, "build", force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, result := range outcome.Results {
				fmt.Fprintf(out, "Wrote %s (%d segments, %.1fs)\n", result.FinalPath, result.Segments, result.Duration)
			}
			if outcome.Partial() {
				for _, failure := range outcome.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s\n", failure)
				}
				return fmt.Errorf("%d of %d slides failed to render", len(outcome.Failures), outcome.Slides)
			}
			fmt.Fprintf(out, "Done: %d rendered, %d reused\n", outcome.Rendered, outcome.Reused)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-render every segment, ignoring the cache")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only process the first N slides (for testing)")
	return cmd
}
