package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			headers := []string{"Started", "Trigger", "Status", "Slides", "Rendered", "Reused", "Failed", "Output"}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Local().Format(time.DateTime),
					run.Trigger,
					run.Status,
					strconv.Itoa(run.Slides),
					strconv.Itoa(run.Rendered),
					strconv.Itoa(run.Reused),
					strconv.Itoa(run.Failed),
					run.Output,
				})
			}
			aligns := []columnAlignment{
				alignLeft, alignLeft, alignLeft,
				alignRight, alignRight, alignRight, alignRight,
				alignLeft,
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))

			latest := runs[0]
			if latest.Failed > 0 {
				failures, err := store.Failures(cmd.Context(), latest.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "\nFailed slides in the latest run:")
				for _, failure := range failures {
					fmt.Fprintf(out, "  slide %d (%s): %s\n", failure.Ordinal, failure.Sources, failure.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}
