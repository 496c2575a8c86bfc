package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipper/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No batch runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					duration := "running"
					if run.Finished() {
						duration = run.Duration().Round(1e9).String()
					}
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						formatTimestamp(run.StartedAt),
						run.BatchPath,
						yesNo(run.DryRun),
						strconv.Itoa(run.Total),
						strconv.Itoa(run.Published),
						strconv.Itoa(run.Failed),
						duration,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Batch", "Dry", "Lines", "Published", "Failed", "Took"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
					0,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run>",
		Short: "Show the outcome of every line in a batch run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				entries, err := store.Entries(cmd.Context(), runID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %d: %s (started %s)\n", run.ID, run.BatchPath, formatTimestamp(run.StartedAt))
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{strconv.Itoa(e.Line), string(e.Outcome), dash(e.ClipID), dash(e.Error)})
				}
				fmt.Fprintln(out, renderTable([]string{"Line", "Outcome", "Clip", "Error"}, rows,
					[]columnAlignment{alignRight}, 70))
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
