package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/batch"
	"clipper/internal/batchfile"
	"clipper/internal/history"
	"clipper/internal/notifications"
	"clipper/internal/preflight"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run and maintain batch files",
	}
	cmd.AddCommand(newBatchRunCommand(ctx))
	cmd.AddCommand(newBatchCheckCommand())
	cmd.AddCommand(newBatchFmtCommand())
	cmd.AddCommand(newBatchExportCommand(ctx))
	return cmd
}

func newBatchRunCommand(ctx *commandContext) *cobra.Command {
	var autoApprove bool
	var failFast bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Generate, review, and publish every clip in a batch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !dryRun {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					for _, r := range failed {
						fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", r.Name, r.Detail)
					}
					return fmt.Errorf("preflight failed (%d checks)", len(failed))
				}
				if missing := preflight.MissingRequired(preflight.CheckSystemDeps(cmd.Context(), cfg)); len(missing) > 0 {
					return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
				}
			}

			recorder, err := history.OpenFromConfig(cfg)
			if err != nil {
				return err
			}
			defer recorder.Close()

			opts := batch.Options{
				AutoApprove: autoApprove,
				FailFast:    failFast,
				DryRun:      dryRun,
				Recorder:    recorder,
				Notifier:    notifications.NewService(cfg),
				Logger:      logger,
				Out:         out,
			}
			if !autoApprove && !dryRun {
				prompt, err := batch.NewTerminalPrompt(os.Stdin, out, cfg.Media.PlayerCommand)
				if err != nil {
					return err
				}
				opts.Reviewer = prompt
			}

			if dryRun {
				runner, err := batch.New(nil, opts)
				if err != nil {
					return err
				}
				summary, err := runner.RunFile(cmd.Context(), args[0])
				fmt.Fprintf(out, "Dry run %d: %d lines, %d invalid\n", summary.RunID, summary.Total, summary.Failed)
				return err
			}

			return ctx.withSession(cmd, sessionOptions{uploader: true, catalog: true}, func(s *session) error {
				runner, err := batch.New(s.ctrl, opts)
				if err != nil {
					return err
				}
				summary, err := runner.RunFile(cmd.Context(), args[0])
				printUnpublished(out, summary)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "Approve every clip without review")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failing line")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate only")
	return cmd
}

func newBatchCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "check <file>",
		Short:       "Validate a batch file without running it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := batchfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			invalid := 0
			for _, e := range entries {
				if e.Err == nil {
					continue
				}
				invalid++
				var perr *batchfile.ParseError
				if errors.As(e.Err, &perr) {
					fmt.Fprintf(out, "line %d: %s\n", e.Line, perr.Reason)
				} else {
					fmt.Fprintf(out, "line %d: %v\n", e.Line, e.Err)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d lines invalid", invalid, len(entries))
			}
			fmt.Fprintf(out, "%d lines OK\n", len(entries))
			return nil
		},
	}
}

func newBatchFmtCommand() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:         "fmt <file>",
		Short:       "Print a batch file in canonical form",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := batchfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			directives := make([]batchfile.Directive, 0, len(entries))
			for _, e := range entries {
				if e.Err != nil {
					return e.Err
				}
				directives = append(directives, e.Directive)
			}
			if !write {
				return batchfile.Dump(cmd.OutOrStdout(), directives)
			}
			var b strings.Builder
			if err := batchfile.Dump(&b, directives); err != nil {
				return err
			}
			if err := os.WriteFile(args[0], []byte(b.String()), 0o644); err != nil {
				return fmt.Errorf("write batch file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Formatted %d lines\n", len(directives))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the file in place")
	return cmd
}

func newBatchExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print published clips as batch lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.readRecords()
			if err != nil {
				return err
			}
			client, err := ctx.requireCatalog(cmd.Context())
			if err != nil {
				return err
			}
			var directives []batchfile.Directive
			skipped := 0
			for _, rec := range store.List() {
				if !rec.Published {
					continue
				}
				entry, ok := client.Clip(rec.ID)
				if !ok || rec.End == "" {
					skipped++
					continue
				}
				directives = append(directives, batchfile.Directive{
					Source:   rec.Source,
					Start:    rec.Start,
					End:      rec.End,
					Category: entry.Category,
					Names:    entry.Names,
				})
			}
			if err := batchfile.Dump(cmd.OutOrStdout(), directives); err != nil {
				return err
			}
			if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d published clips missing from the catalog or without an end marker\n", skipped)
			}
			return nil
		},
	}
}

// printUnpublished notes clips that stopped at upload. The runner has already
// printed the summary line.
func printUnpublished(out io.Writer, summary batch.Summary) {
	if summary.Uploaded > 0 {
		fmt.Fprintf(out, "%d uploaded but not published (no catalog configured)\n", summary.Uploaded)
	}
}
